// Package scenarios replays YAML-described call sequences against a fresh
// in-memory factory and checks every outcome.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step is one factory call. Address and identifier fields take hex values,
// the alias "controller", or "$name" to reuse a value saved by an earlier step.
type Step struct {
	Op     string `yaml:"op"`
	Caller string `yaml:"caller,omitempty"`
	User   string `yaml:"user,omitempty"`
	Owner  string `yaml:"owner,omitempty"`
	Salt   string `yaml:"salt,omitempty"`
	Wallet string `yaml:"wallet,omitempty"`
	// Expect is "ok" (the default) or an events.Reason* value.
	Expect string `yaml:"expect,omitempty"`
	// Want, when set, is compared with the step result.
	Want string `yaml:"want,omitempty"`
	// Save stores the step result under a name.
	Save string `yaml:"save,omitempty"`
}

type Scenario struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description,omitempty"`
	Factory      string `yaml:"factory"`
	Controller   string `yaml:"controller"`
	MaxInstances int    `yaml:"max_instances,omitempty"`
	Steps        []Step `yaml:"steps"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &sc, nil
}
