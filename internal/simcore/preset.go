package simcore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/star/orbitsim/internal/nbody"
)

// BodyPreset describes one gravitational body at reset time, loaded from
// a scenario file (spec.md §6: "Preset defines for each body: position,
// velocity, mass, radius, identity"). Tag shape mirrors the dual
// yaml/json struct fields used for universe.yaml in the rest of the
// example pack.
type BodyPreset struct {
	Name   string  `yaml:"name" json:"name"`
	PosX   float64 `yaml:"pos_x" json:"pos_x"`
	PosY   float64 `yaml:"pos_y" json:"pos_y"`
	VelX   float64 `yaml:"vel_x" json:"vel_x"`
	VelY   float64 `yaml:"vel_y" json:"vel_y"`
	Mass   float64 `yaml:"mass" json:"mass"`
	Radius float64 `yaml:"radius" json:"radius"`
}

// CraftPreset describes one orbiting craft at reset time.
type CraftPreset struct {
	Name       string  `yaml:"name" json:"name"`
	Parent     string  `yaml:"parent" json:"parent"` // body Name
	Altitude   float64 `yaml:"altitude" json:"altitude"`
	Angle      float64 `yaml:"angle" json:"angle"`
	OrbitalDir float64 `yaml:"orbital_dir" json:"orbital_dir"`
}

// Preset is a named scenario: a fixed set of bodies plus the crafts
// starting in orbit around them.
type Preset struct {
	Name   string        `yaml:"name" json:"name"`
	Bodies []BodyPreset  `yaml:"bodies" json:"bodies"`
	Crafts []CraftPreset `yaml:"crafts" json:"crafts"`
}

// LoadPresetFile parses a scenario file from disk.
func LoadPresetFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("simcore: read preset %q: %w", path, err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("simcore: parse preset %q: %w", path, err)
	}
	return p, nil
}

// SolTerraEmber is the reference scenario named in the example fixtures:
// a sun-like primary with two planets, and a craft in low orbit around
// the inner planet.
func SolTerraEmber() Preset {
	return Preset{
		Name: "sol-terra-ember",
		Bodies: []BodyPreset{
			{Name: "Sol", PosX: 0, PosY: 0, VelX: 0, VelY: 0, Mass: 20000, Radius: 60},
			{Name: "Terra", PosX: 800, PosY: 0, VelX: 0, VelY: 31.3, Mass: 40, Radius: 12},
			{Name: "Ember", PosX: -1400, PosY: 0, VelX: 0, VelY: -23.8, Mass: 55, Radius: 15},
		},
		Crafts: []CraftPreset{
			{Name: "Pioneer", Parent: "Terra", Altitude: 25, Angle: 0, OrbitalDir: 1},
		},
	}
}

// initialStates returns the bodies' initial nbody.State vector, in the
// same dense index order as p.Bodies.
func (p Preset) initialStates() []nbody.State {
	states := make([]nbody.State, len(p.Bodies))
	for i, b := range p.Bodies {
		states[i] = nbody.State{Pos: nbody.Vec2{X: b.PosX, Y: b.PosY}, Vel: nbody.Vec2{X: b.VelX, Y: b.VelY}}
	}
	return states
}

// masses returns the bodies' mass vector, dense index order.
func (p Preset) masses() []nbody.Mass {
	m := make([]nbody.Mass, len(p.Bodies))
	for i, b := range p.Bodies {
		m[i] = b.Mass
	}
	return m
}

// bodyIndexByName resolves a preset body name to its dense index, or -1
// if not found.
func (p Preset) bodyIndexByName(name string) int {
	for i, b := range p.Bodies {
		if b.Name == name {
			return i
		}
	}
	return -1
}
