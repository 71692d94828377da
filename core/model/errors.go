package model

import "errors"

// Error taxonomy shared by every factory operation. Callers match with errors.Is.
var (
	// ErrUnauthorized is returned when the caller is not the controller.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyExists is returned when the user already owns a wallet.
	ErrAlreadyExists = errors.New("wallet already exists")
	// ErrNotFound is returned by lookups on unregistered keys.
	ErrNotFound = errors.New("not found")
	// ErrDeploymentFailed is returned when an instance cannot be materialized.
	ErrDeploymentFailed = errors.New("deployment failed")
	// ErrInvalidInput flags malformed identifiers at the edges.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInconsistent flags a registry entry that no longer matches its derivation.
	ErrInconsistent = errors.New("registry inconsistent with derivation")
)
