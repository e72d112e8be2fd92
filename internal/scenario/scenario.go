// Package scenario loads reproducible simulation inputs from YAML files.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fineflow77/btclti/internal/simulation"
)

// Scenario is one YAML document. Numeric inputs stay strings so they pass through the same
// validation as form input. AsOfYear of zero means the current year.
type Scenario struct {
	Name         string                        `yaml:"name"`
	AsOfYear     int                           `yaml:"asOfYear,omitempty"`
	Currency     string                        `yaml:"currency,omitempty"`
	Accumulation *simulation.AccumulationInput `yaml:"accumulation,omitempty"`
	Decumulation *simulation.DecumulationInput `yaml:"decumulation,omitempty"`
}

// Load reads and parses the scenario file at path.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a scenario document. Unknown keys are rejected.
func Parse(data []byte) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, err
	}
	if s.Accumulation == nil && s.Decumulation == nil {
		return Scenario{}, errors.New("scenario defines neither accumulation nor decumulation")
	}
	return s, nil
}

// Year resolves AsOfYear against the caller's current year.
func (s Scenario) Year(current int) int {
	if s.AsOfYear != 0 {
		return s.AsOfYear
	}
	return current
}
