package config

import (
	"fmt"

	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
)

// FactoryConfig identifies the factory and selects its shared logic.
type FactoryConfig struct {
	// Address is the factory identity mixed into every derivation.
	Address string `json:"address"`
	// Controller is the only caller allowed to mutate the factory.
	Controller string `json:"controller"`
	// Logic names an entry of logic.Catalog.
	Logic string `json:"logic"`
	// MaxInstances bounds the address space. Zero means unlimited.
	MaxInstances int `json:"max_instances"`
}

// SetDefaults applies sane defaults.
func (c *FactoryConfig) SetDefaults() {
	if c.Logic == "" {
		c.Logic = logic.OwnedWalletName
	}
}

// Validate checks mandatory fields.
func (c FactoryConfig) Validate() error {
	if _, err := c.FactoryAddress(); err != nil {
		return fmt.Errorf("address: %w", err)
	}
	if _, err := c.ControllerAddress(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if c.MaxInstances < 0 {
		return fmt.Errorf("max_instances must not be negative")
	}
	return nil
}

// FactoryAddress parses Address. The zero address is rejected.
func (c FactoryConfig) FactoryAddress() (model.Address, error) {
	return parseNonZero(c.Address)
}

// ControllerAddress parses Controller. The zero address is rejected.
func (c FactoryConfig) ControllerAddress() (model.Address, error) {
	return parseNonZero(c.Controller)
}

func parseNonZero(s string) (model.Address, error) {
	a, err := model.ParseAddress(s)
	if err != nil {
		return a, err
	}
	if a.IsZero() {
		return a, fmt.Errorf("%w: zero address", model.ErrInvalidInput)
	}
	return a, nil
}
