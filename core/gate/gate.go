// Package gate restricts mutating factory operations to one controller.
package gate

import (
	"fmt"

	"github.com/kilianp07/walletfactory/core/model"
)

// Gate decides whether a caller may mutate factory state.
type Gate interface {
	Authorize(caller model.Address) error
	Controller() model.Address
}

// ControllerGate admits exactly one controller identity.
type ControllerGate struct {
	controller model.Address
}

// NewControllerGate returns a gate for controller. The zero address is rejected
// because anonymous callers present it.
func NewControllerGate(controller model.Address) (*ControllerGate, error) {
	if controller.IsZero() {
		return nil, fmt.Errorf("%w: controller must not be the zero address", model.ErrInvalidInput)
	}
	return &ControllerGate{controller: controller}, nil
}

// Authorize returns model.ErrUnauthorized unless caller is the controller.
func (g *ControllerGate) Authorize(caller model.Address) error {
	if caller != g.controller {
		return fmt.Errorf("%w: caller %s is not the controller", model.ErrUnauthorized, caller)
	}
	return nil
}

func (g *ControllerGate) Controller() model.Address { return g.controller }
