package model

import "time"

// Implementation is one deployed copy of the shared wallet logic.
type Implementation struct {
	Address    Address   `json:"address"`
	Logic      string    `json:"logic"`
	Version    uint64    `json:"version"`
	DeployedAt time.Time `json:"deployed_at"`
}
