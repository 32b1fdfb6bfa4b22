// Package session orchestrates one PnR job: build the fabric, place the
// design, split pipeline registers, route the design, and hand the result
// to a bitstream writer (spec §2 "control flow", §4.E "state machine").
package session

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// AdjacencyStrategy selects the placement engine's net-adjacency rule
// (spec §9 "Configuration"): nearest-neighbor, or a radius-r relaxation.
type AdjacencyStrategy struct {
	Radius int
}

// NearestNeighbor is the strict adjacency strategy: Δx,Δy ∈ {(0,1),(1,0)}.
func NearestNeighbor() AdjacencyStrategy { return AdjacencyStrategy{Radius: 1} }

// Radius relaxes adjacency to any (Δx,Δy) with 0 < Δx+Δy ≤ r.
func Radius(r int) AdjacencyStrategy { return AdjacencyStrategy{Radius: r} }

// Config holds every knob the core reads (spec §9: "No other knobs are
// read by the core"). Zero value is invalid; use DefaultConfig.
type Config struct {
	DistFactor        int               `yaml:"dist_factor"`
	AdjacencyStrategy AdjacencyStrategy `yaml:"-"`
	AdjacencyRadius   int               `yaml:"adjacency_radius"`
	SolverBackend     string            `yaml:"solver_backend"`
	RegisterWidth     int               `yaml:"register_width"`
}

// DefaultConfig returns dist_factor=1, nearest-neighbor adjacency, the
// reference solver backend, and a 2-bit register-color field.
func DefaultConfig() Config {
	return Config{
		DistFactor:      1,
		AdjacencyRadius: 1,
		SolverBackend:   "refsolver",
		RegisterWidth:   2,
	}
}

// WithDistFactor sets the routing distance-bound slack multiplier.
func (c Config) WithDistFactor(f int) Config {
	c.DistFactor = f
	return c
}

// WithAdjacencyStrategy sets the placement adjacency rule.
func (c Config) WithAdjacencyStrategy(s AdjacencyStrategy) Config {
	c.AdjacencyRadius = s.Radius
	return c
}

// WithSolverBackend names the theory-solver backend to construct. Only
// "refsolver" (or "", which selects it) is recognized by New; other names are
// accepted here (the Config itself is backend-agnostic) but rejected at
// session construction time.
func (c Config) WithSolverBackend(name string) Config {
	c.SolverBackend = name
	return c
}

// WithRegisterWidth sets the pipeline-color field's bit width.
func (c Config) WithRegisterWidth(bits int) Config {
	c.RegisterWidth = bits
	return c
}

// LoadConfig reads a Config from YAML, applying DefaultConfig for any
// field the document omits.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("session: decode config: %w", err)
	}
	if cfg.DistFactor < 1 {
		return Config{}, fmt.Errorf("session: dist_factor must be >= 1, got %d", cfg.DistFactor)
	}
	if cfg.AdjacencyRadius < 1 {
		return Config{}, fmt.Errorf("session: adjacency_radius must be >= 1, got %d", cfg.AdjacencyRadius)
	}
	return cfg, nil
}
