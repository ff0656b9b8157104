package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/equinox/fleet-inspections/internal/validation"
)

// Fixture is the accounts file read by the seed tool.
type Fixture struct {
	Users []validation.NewUser `yaml:"users"`
}

// LoadFixture reads a Fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture file: %w", err)
	}
	defer file.Close()
	return decodeFixture(file)
}

func decodeFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &f, nil
}
