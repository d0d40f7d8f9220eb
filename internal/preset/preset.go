// Package preset ships named parameter sets for the simulation modules.
// A built-in library covers the common classroom scenarios; a YAML file
// can add to or override it at startup.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/motionlab/kinema/internal/motion"
)

// Preset is one named parameter set for a module. Inputs are partial and
// get merged over the module defaults when a session is created.
type Preset struct {
	Name        string         `yaml:"name" json:"name"`
	Module      string         `yaml:"module" json:"module"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Inputs      map[string]any `yaml:"inputs" json:"inputs"`
}

// Library is an ordered preset collection.
type Library struct {
	presets []Preset
}

// file is the YAML document shape.
type file struct {
	Presets []Preset `yaml:"presets"`
}

var builtin = []Preset{
	{
		Name:        "standard throw",
		Module:      string(motion.KindProjectile),
		Description: "A ball thrown at 45 degrees under Earth gravity.",
		Inputs:      map[string]any{},
	},
	{
		Name:        "moon gravity",
		Module:      string(motion.KindProjectile),
		Description: "The same throw on the Moon.",
		Inputs:      map[string]any{"gravity": 1.62},
	},
	{
		Name:        "artillery shot",
		Module:      string(motion.KindProjectile),
		Description: "High launch speed at a shallow angle.",
		Inputs:      map[string]any{"velocity": 200.0, "angle": 30.0},
	},
	{
		Name:        "stiff spring",
		Module:      string(motion.KindSpring),
		Description: "A high spring constant for fast oscillation.",
		Inputs:      map[string]any{"springConstant": 100.0},
	},
	{
		Name:        "critically damped",
		Module:      string(motion.KindSpring),
		Description: "Damping at the critical ratio, no overshoot.",
		Inputs:      map[string]any{"springConstant": 1.0, "mass": 1.0, "damping": 2.0},
	},
	{
		Name:        "heavy bob",
		Module:      string(motion.KindPendulum),
		Description: "A long pendulum with a heavy bob.",
		Inputs:      map[string]any{"length": 3.0, "mass": 5.0},
	},
	{
		Name:        "grandfather clock",
		Module:      string(motion.KindPendulum),
		Description: "A one-meter pendulum with light damping.",
		Inputs:      map[string]any{"length": 1.0, "damping": 0.05},
	},
	{
		Name:        "slow wave",
		Module:      string(motion.KindWave),
		Description: "A long, slow transverse wave.",
		Inputs:      map[string]any{"frequency": 0.5, "wavelength": 4.0},
	},
	{
		Name:        "sound-like wave",
		Module:      string(motion.KindWave),
		Description: "A longitudinal wave, compression style.",
		Inputs:      map[string]any{"waveType": "longitudinal", "frequency": 2.0},
	},
}

// Builtin returns the compiled-in library.
func Builtin() *Library {
	presets := make([]Preset, len(builtin))
	copy(presets, builtin)
	return &Library{presets: presets}
}

// Load returns the built-in library extended by the YAML file at path.
// A file preset with the same module and name replaces the built-in one.
// An empty path returns the built-in library unchanged.
func Load(path string) (*Library, error) {
	lib := Builtin()
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading preset file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing preset file: %w", err)
	}

	for _, p := range f.Presets {
		if !motion.Known(p.Module) {
			return nil, fmt.Errorf("preset %q references unknown module %q", p.Name, p.Module)
		}
		if p.Inputs == nil {
			p.Inputs = map[string]any{}
		}
		lib.put(p)
	}
	return lib, nil
}

func (l *Library) put(p Preset) {
	for i, existing := range l.presets {
		if existing.Module == p.Module && existing.Name == p.Name {
			l.presets[i] = p
			return
		}
	}
	l.presets = append(l.presets, p)
}

// All returns every preset.
func (l *Library) All() []Preset {
	out := make([]Preset, len(l.presets))
	copy(out, l.presets)
	return out
}

// ForModule returns the presets for one module.
func (l *Library) ForModule(module string) []Preset {
	var out []Preset
	for _, p := range l.presets {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out
}

// Get looks up a preset by module and name.
func (l *Library) Get(module, name string) (Preset, bool) {
	for _, p := range l.presets {
		if p.Module == module && p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
