// Package manifest reads fractal.toml, the build manifest listing which
// modules to produce and how to benchmark them.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/wippyai/fractal-wasm/errors"
	"github.com/wippyai/fractal-wasm/fractal"
)

// DefaultPath is the manifest file looked up when none is given.
const DefaultPath = "fractal.toml"

const (
	DefaultGrid    = 200
	DefaultMaxIter = 100
)

// Manifest is the parsed build manifest.
type Manifest struct {
	Targets []Target `toml:"target"`
	Bench   Bench    `toml:"bench"`
}

// Target is one module to build.
type Target struct {
	Name     string   `toml:"name"`
	Output   string   `toml:"output"`
	Variants []string `toml:"variants"`
	Validate bool     `toml:"validate"`
}

// Bench configures `fractalc bench`.
type Bench struct {
	Variant string `toml:"variant"`
	Grid    int    `toml:"grid"`
	MaxIter int    `toml:"max_iter"`
	Workers int    `toml:"workers"`
	Output  string `toml:"output"`
}

// New returns a manifest with default benchmark settings and no targets.
func New() *Manifest {
	return &Manifest{
		Bench: Bench{
			Variant: "mandelbrot",
			Grid:    DefaultGrid,
			MaxIter: DefaultMaxIter,
		},
	}
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read manifest")
	}
	return Parse(data)
}

// Parse decodes and validates a manifest. Keys the manifest does not define
// are rejected.
func Parse(data []byte) (*Manifest, error) {
	m := New()
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode manifest")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) applyDefaults() {
	for i := range m.Targets {
		t := &m.Targets[i]
		if len(t.Variants) == 0 {
			t.Variants = fractal.Names()
		}
	}
}

// Validate reports every problem in the manifest at once.
func (m *Manifest) Validate() error {
	var err error

	names := make(map[string]struct{})
	outputs := make(map[string]struct{})
	for i, t := range m.Targets {
		label := t.Name
		if label == "" {
			label = fmt.Sprintf("target[%d]", i)
			err = multierr.Append(err, invalid(label, "name is required"))
		} else if _, dup := names[t.Name]; dup {
			err = multierr.Append(err, errors.Duplicate(errors.PhaseConfig, "target", t.Name))
		}
		names[t.Name] = struct{}{}

		if t.Output == "" {
			err = multierr.Append(err, invalid(label, "output is required"))
		} else if _, dup := outputs[t.Output]; dup {
			err = multierr.Append(err, errors.Duplicate(errors.PhaseConfig, "output", t.Output))
		}
		outputs[t.Output] = struct{}{}

		seen := make(map[string]struct{}, len(t.Variants))
		for _, v := range t.Variants {
			if _, dup := seen[v]; dup {
				err = multierr.Append(err, errors.Duplicate(errors.PhaseConfig, "variant", v))
				continue
			}
			seen[v] = struct{}{}
			if _, lookupErr := fractal.Lookup(v); lookupErr != nil {
				err = multierr.Append(err, errors.New(errors.PhaseConfig, errors.KindUnknownVariant).
					Path(label, v).
					Value(v).
					Detail("no fractal variant named %q", v).
					Build())
			}
		}
	}

	if m.Bench.Grid <= 0 {
		err = multierr.Append(err, invalid("bench", fmt.Sprintf("grid must be positive, got %d", m.Bench.Grid)))
	}
	if m.Bench.MaxIter < 0 {
		err = multierr.Append(err, invalid("bench", fmt.Sprintf("max_iter must not be negative, got %d", m.Bench.MaxIter)))
	}
	if m.Bench.Workers < 0 {
		err = multierr.Append(err, invalid("bench", fmt.Sprintf("workers must not be negative, got %d", m.Bench.Workers)))
	}
	if _, lookupErr := fractal.Lookup(m.Bench.Variant); lookupErr != nil {
		err = multierr.Append(err, errors.New(errors.PhaseConfig, errors.KindUnknownVariant).
			Path("bench", m.Bench.Variant).
			Value(m.Bench.Variant).
			Detail("no fractal variant named %q", m.Bench.Variant).
			Build())
	}

	return err
}

// Target returns the target with the given name.
func (m *Manifest) Target(name string) (Target, bool) {
	for _, t := range m.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

func invalid(path, detail string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(path).
		Detail("%s", detail).
		Build()
}
