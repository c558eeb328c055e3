// Package preset stores instrument profiles as small YAML files: a
// built-in set compiled into the binary plus user files under the
// platform config directory. File names double as preset names, with
// underscores standing in for spaces.
package preset

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askorpi/rivi"
)

//go:embed presets/*.yaml
var builtinFS embed.FS

// file is the persisted YAML form of an instrument profile.
type file struct {
	Name      string  `yaml:"name,omitempty"`
	Wave      string  `yaml:"wave"`
	Attack    float64 `yaml:"attack"`
	Decay     float64 `yaml:"decay"`
	Sustain   float64 `yaml:"sustain"`
	Release   float64 `yaml:"release"`
	Amplitude float64 `yaml:"amplitude"`
}

var waves = map[string]rivi.Wave{
	"sine":     rivi.WaveSine,
	"square":   rivi.WaveSquare,
	"triangle": rivi.WaveTriangle,
	"saw":      rivi.WaveSaw,
	"noise":    rivi.WaveNoise,
}

// Preset is one named instrument profile and where it came from.
type Preset struct {
	Name       string
	User       bool
	Instrument rivi.Instrument
}

// Decode parses one preset file. Unknown fields and unknown wave names
// are errors, so a typo fails loudly instead of playing a sine.
func Decode(data []byte) (rivi.Instrument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		return rivi.Instrument{}, err
	}
	wave, ok := waves[f.Wave]
	if !ok {
		return rivi.Instrument{}, fmt.Errorf("unknown wave %q", f.Wave)
	}
	return rivi.Instrument{
		Name:      f.Name,
		Wave:      wave,
		Attack:    f.Attack,
		Decay:     f.Decay,
		Sustain:   f.Sustain,
		Release:   f.Release,
		Amplitude: f.Amplitude,
	}, nil
}

// Encode renders the instrument as preset YAML.
func Encode(inst rivi.Instrument) ([]byte, error) {
	return yaml.Marshal(file{
		Name:      inst.Name,
		Wave:      string(inst.Wave),
		Attack:    inst.Attack,
		Decay:     inst.Decay,
		Sustain:   inst.Sustain,
		Release:   inst.Release,
		Amplitude: inst.Amplitude,
	})
}

// UserDir returns where user presets live.
func UserDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "rivi", "presets"), nil
}

// Load gathers the built-in presets and whatever user presets exist,
// sorted with the built-ins first. Files that do not decode are skipped.
func Load() []Preset {
	out := loadFrom(builtinFS, false, nil)
	if dir, err := UserDir(); err == nil {
		out = loadFrom(os.DirFS(dir), true, out)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].User != out[j].User {
			return !out[i].User
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func loadFrom(fsys fs.FS, user bool, out []Preset) []Preset {
	root := "."
	if !user {
		root = "presets"
	}
	fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil
		}
		inst, err := Decode(data)
		if err != nil {
			return nil
		}
		name := inst.Name
		if name == "" {
			base := filepath.Base(path)
			name = strings.ReplaceAll(strings.TrimSuffix(base, ext), "_", " ")
			inst.Name = name
		}
		out = append(out, Preset{Name: name, User: user, Instrument: inst})
		return nil
	})
	return out
}

// Instruments strips a preset list down to its profiles, in order.
func Instruments(presets []Preset) []rivi.Instrument {
	out := make([]rivi.Instrument, len(presets))
	for i, p := range presets {
		out[i] = p.Instrument
	}
	return out
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9 _-]+`)

// Save writes the instrument as a user preset under dir, creating the
// directory as needed, and returns the file path.
func Save(dir, name string, inst rivi.Instrument) (string, error) {
	clean := unsafeChars.ReplaceAllString(name, "")
	clean = strings.ReplaceAll(strings.TrimSpace(clean), " ", "_")
	if clean == "" {
		return "", fmt.Errorf("preset name %q has no usable characters", name)
	}
	if inst.Name == "" {
		inst.Name = strings.ReplaceAll(clean, "_", " ")
	}
	data, err := Encode(inst)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, clean+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
