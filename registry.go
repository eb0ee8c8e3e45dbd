package bluequery

import (
	"fmt"
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Defaults applied by the registry file loader when a field is omitted.
const (
	DefaultAllowsMultipleValues = true
	DefaultIsStorable           = true
	DefaultMaxSize              = 128
)

// Definition describes a recognized query-string key and its constraints.
// A MaxSize of 0 means unbounded; a nil Format means any value is accepted.
type Definition struct {
	Name                 string
	AllowsMultipleValues bool
	IsStorable           bool
	MaxSize              int
	Format               *regexp.Regexp
}

func (d *Definition) String() string {
	return d.Name
}

// DefinitionSpec is the uncompiled form of a Definition.
type DefinitionSpec struct {
	Name                 string `yaml:"name" toml:"name"`
	AllowsMultipleValues *bool  `yaml:"allows_multiple_values" toml:"allows_multiple_values"`
	IsStorable           *bool  `yaml:"is_storable" toml:"is_storable"`
	MaxSize              *int   `yaml:"max_size" toml:"max_size"`
	Format               string `yaml:"format" toml:"format"`
}

// RegistrySpec lists definitions in canonical URL order together with the
// names of the distinguished parameters.
type RegistrySpec struct {
	Parameters       []DefinitionSpec `yaml:"parameters" toml:"parameters"`
	KeyParam         string           `yaml:"key_param" toml:"key_param"`
	ActionParam      string           `yaml:"action_param" toml:"action_param"`
	PageParam        string           `yaml:"page_param" toml:"page_param"`
	DisplayTypeParam string           `yaml:"display_type_param" toml:"display_type_param"`
}

// Registry is the ordered, read-only catalog of parameter definitions.
// It is safe for concurrent use once built.
type Registry struct {
	list        []*Definition
	byName      map[string]*Definition
	key         *Definition
	action      *Definition
	page        *Definition
	displayType *Definition
	storable    mapset.Set[string]
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// NewRegistry compiles spec into a Registry. All problems found are returned
// together.
func NewRegistry(spec RegistrySpec) (*Registry, error) {
	var errs *multierror.Error

	r := &Registry{
		list:     make([]*Definition, 0, len(spec.Parameters)),
		byName:   make(map[string]*Definition, len(spec.Parameters)),
		storable: mapset.NewThreadUnsafeSet[string](),
	}
	seen := mapset.NewThreadUnsafeSet[string]()

	for i, ds := range spec.Parameters {
		if ds.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("parameter[%d]: name is required", i))
			continue
		}
		if !seen.Add(ds.Name) {
			errs = multierror.Append(errs, fmt.Errorf("parameter %q: declared more than once", ds.Name))
			continue
		}

		d := &Definition{
			Name:                 ds.Name,
			AllowsMultipleValues: boolOr(ds.AllowsMultipleValues, DefaultAllowsMultipleValues),
			IsStorable:           boolOr(ds.IsStorable, DefaultIsStorable),
			MaxSize:              intOr(ds.MaxSize, DefaultMaxSize),
		}
		if d.MaxSize < 0 {
			errs = multierror.Append(errs, fmt.Errorf("parameter %q: max_size must not be negative", ds.Name))
			continue
		}
		if ds.Format != "" {
			re, err := regexp.Compile(ds.Format)
			if err != nil {
				errs = multierror.Append(errs, errors.Wrapf(err, "parameter %q: format", ds.Name))
				continue
			}
			d.Format = re
		}

		r.list = append(r.list, d)
		r.byName[d.Name] = d
		if d.IsStorable {
			r.storable.Add(d.Name)
		}
	}

	distinguished := []struct {
		role string
		name string
		dst  **Definition
	}{
		{"key_param", spec.KeyParam, &r.key},
		{"action_param", spec.ActionParam, &r.action},
		{"page_param", spec.PageParam, &r.page},
		{"display_type_param", spec.DisplayTypeParam, &r.displayType},
	}
	for _, d := range distinguished {
		if d.name == "" {
			continue
		}
		def, ok := r.byName[d.name]
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s %q is not a declared parameter", d.role, d.name))
			continue
		}
		*d.dst = def
	}

	if r.key != nil && r.key.IsStorable {
		errs = multierror.Append(errs, fmt.Errorf("key_param %q must not be storable", r.key.Name))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(spec RegistrySpec) *Registry {
	r, err := NewRegistry(spec)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns the definitions in canonical order.
// The slice must not be modified.
func (r *Registry) List() []*Definition {
	return r.list
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Key returns the derived key parameter, or nil.
func (r *Registry) Key() *Definition { return r.key }

// Action returns the action parameter, or nil.
func (r *Registry) Action() *Definition { return r.action }

// Page returns the page parameter, or nil.
func (r *Registry) Page() *Definition { return r.page }

// DisplayType returns the display type parameter, or nil.
func (r *Registry) DisplayType() *Definition { return r.displayType }

// StorableNames returns the names of all storable parameters. The returned
// set is a copy.
func (r *Registry) StorableNames() mapset.Set[string] {
	return r.storable.Clone()
}
