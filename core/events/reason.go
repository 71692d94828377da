package events

import (
	"errors"

	"github.com/kilianp07/walletfactory/core/model"
)

// Rejection reasons, one per error class.
const (
	ReasonUnauthorized     = "unauthorized"
	ReasonAlreadyExists    = "already_exists"
	ReasonNotFound         = "not_found"
	ReasonDeploymentFailed = "deployment_failed"
	ReasonInvalidInput     = "invalid_input"
	ReasonInternal         = "internal"
)

// Reason classifies err into one of the Reason* constants.
func Reason(err error) string {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return ReasonUnauthorized
	case errors.Is(err, model.ErrAlreadyExists):
		return ReasonAlreadyExists
	case errors.Is(err, model.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, model.ErrDeploymentFailed):
		return ReasonDeploymentFailed
	case errors.Is(err, model.ErrInvalidInput):
		return ReasonInvalidInput
	default:
		return ReasonInternal
	}
}
