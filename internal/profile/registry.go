package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrNotSupported is returned by Resolve for an unknown language identifier.
var ErrNotSupported = errors.New("language not supported")

//go:embed languages.yaml
var builtinYAML []byte

type table struct {
	Languages []Profile `yaml:"languages"`
}

// Registry is an immutable lookup table from language identifier to profile.
// It is safe for concurrent use.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry validates the given profiles and builds a registry from them.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	reg := &Registry{profiles: make(map[string]Profile, len(profiles))}

	for _, p := range profiles {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, exists := reg.profiles[p.ID]; exists {
			return nil, fmt.Errorf("duplicate profile for language %q", p.ID)
		}
		reg.profiles[p.ID] = p
	}

	if len(reg.profiles) == 0 {
		return nil, errors.New("at least one language profile must be registered")
	}
	return reg, nil
}

// Load builds the registry from the built-in table, with profiles from
// overridePath (if non-empty) replacing or extending entries by id.
func Load(overridePath string) (*Registry, error) {
	base, err := Builtin()
	if err != nil {
		return nil, err
	}
	if overridePath == "" {
		return NewRegistry(base...)
	}

	extra, err := LoadFile(overridePath)
	if err != nil {
		return nil, err
	}
	return NewRegistry(Merge(base, extra)...)
}

// Builtin returns the embedded language table.
func Builtin() ([]Profile, error) {
	return parse(builtinYAML, "builtin languages")
}

// LoadFile reads a language table from a YAML file.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading languages %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, name string) ([]Profile, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing languages %s: %w", name, err)
	}
	return t.Languages, nil
}

// Merge returns base with every profile in overrides replacing the entry of
// the same id, or appended when the id is new.
func Merge(base, overrides []Profile) []Profile {
	out := make([]Profile, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base))
	for _, p := range base {
		index[p.ID] = len(out)
		out = append(out, p)
	}
	for _, p := range overrides {
		if i, ok := index[p.ID]; ok {
			out[i] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out
}

// Resolve returns the profile for a language identifier.
func (r *Registry) Resolve(id string) (Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrNotSupported, id)
	}
	return p, nil
}

// Languages returns the registered identifiers in sorted order.
func (r *Registry) Languages() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profiles returns every profile ordered by identifier.
func (r *Registry) Profiles() []Profile {
	ids := r.Languages()
	out := make([]Profile, len(ids))
	for i, id := range ids {
		out[i] = r.profiles[id]
	}
	return out
}

func (p Profile) validate() error {
	if p.ID == "" {
		return errors.New("language profile missing id")
	}
	if p.Source == "" {
		return fmt.Errorf("language %q: missing source file name", p.ID)
	}
	if len(p.Run) == 0 {
		return fmt.Errorf("language %q: missing run command", p.ID)
	}
	switch p.Diagnostics {
	case "", StreamStderr, StreamStdout:
	default:
		return fmt.Errorf("language %q: unknown diagnostics stream %q", p.ID, p.Diagnostics)
	}
	switch p.Driver {
	case DriverNone, DriverSQL:
	default:
		return fmt.Errorf("language %q: unknown driver %q", p.ID, p.Driver)
	}
	return nil
}
