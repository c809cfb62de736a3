// Package registries provides the ModuleRegistry configuration kind for pick.
package registries

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/pick/api"
	"github.com/macropower/pick/api/v1beta1"
	"github.com/macropower/pick/pkg/module"
	"github.com/macropower/pick/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/registry/main.go -o registries.v1beta1.json

var (
	//go:embed registries.v1beta1.json
	schemaJSON []byte

	//go:embed registry.yaml
	defaultRegistryYAML []byte

	// DefaultValidator validates registry files against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/registries.v1beta1.json", schemaJSON)

	// ValidKinds contains the valid kind values for registry files.
	ValidKinds = []string{"ModuleRegistry"}

	// Compile-time interface checks.
	_ v1beta1.Object = (*Registry)(nil)
)

// Registry is the authored module catalog: the YAML face of
// [module.Registry].
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Registry struct {
	v1beta1.TypeMeta `json:",inline"`

	// Modules lists the module nodes. Declaration order is priority order.
	Modules []*module.Node `json:"modules" jsonschema:"title=Modules"`
}

// New creates an empty [Registry].
func New() *Registry {
	return &Registry{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "ModuleRegistry",
		},
	}
}

// EnsureDefaults initializes nil fields to their default values.
func (r *Registry) EnsureDefaults() {
	if r.Modules == nil {
		r.Modules = []*module.Node{}
	}
}

func (r Registry) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// Build validates the node graph and returns the immutable runtime registry.
// Graph errors are annotated with the YAML path of the offending module
// where one can be named.
func (r *Registry) Build() (*module.Registry, error) {
	reg, err := module.Load(r.Modules)
	if err != nil {
		return nil, r.annotate(err)
	}

	return reg, nil
}

// annotate attaches a YAML path to graph validation errors.
func (r *Registry) annotate(err error) error {
	pb := yaml.NewPathBuilder()
	modules := pb.Root().Child("modules")

	idx := func(id string) (uint, bool) {
		i := slices.IndexFunc(r.Modules, func(n *module.Node) bool {
			return n.ID == id
		})
		if i < 0 {
			return 0, false
		}

		return uint(i), true //nolint:gosec // G115: index from IndexFunc.
	}

	switch e := err.(type) { //nolint:errorlint // Load returns unwrapped typed errors.
	case module.DuplicateIDError:
		// Point at the later duplicate.
		for i := len(r.Modules) - 1; i >= 0; i-- {
			if r.Modules[i].ID == e.ID {
				//nolint:gosec // G115: loop index.
				return yaml.NewError(err, yaml.WithPath(modules.Index(uint(i)).Child("id").Build()))
			}
		}

	case module.UnknownReferenceError:
		if i, ok := idx(e.From); ok {
			field := "requires"
			if n := r.Modules[i]; !slices.Contains(n.Requires, e.To) {
				field = "conflictsWith"
			}

			return yaml.NewError(err, yaml.WithPath(modules.Index(i).Child(field).Build()))
		}

	case module.NodeError:
		if i, ok := idx(e.ID); ok {
			return yaml.NewError(err, yaml.WithPath(modules.Index(i).Build()))
		}
	}

	return yaml.NewError(err, yaml.WithPath(modules.Build()))
}

// GetPath returns the default registry file path in the user's config
// directory.
func GetPath() string {
	return api.GetConfigPath("registry.yaml")
}

// WriteDefault writes the embedded default registry to path. Using `force`
// backs up and replaces an existing file.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultRegistryYAML, force, "registry")
	if err != nil {
		return fmt.Errorf("write default registry: %w", err)
	}

	return nil
}

// Default returns the embedded default registry.
func Default() *Registry {
	l := NewLoaderFromBytes(defaultRegistryYAML)

	r, err := l.Load()
	if err != nil {
		panic(fmt.Errorf("load embedded default registry: %w", err))
	}

	return r
}

// Validator validates decoded registry data.
type Validator interface {
	Validate(data any) error
}

// Loader loads and validates a registry file.
type Loader struct {
	v         Validator
	yamlError *yaml.ErrorWrapper
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] for in-memory registry data.
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{
		v:    DefaultValidator,
		data: data,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.yamlError = yaml.NewErrorWrapper(
		yaml.WithSource(l.data),
	)

	return l
}

// NewLoaderFromFile creates a [Loader] reading from path.
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	return NewLoaderFromBytes(data, opts...), nil
}

type LoaderOpt func(*Loader)

// WithValidator overrides the schema validator.
func WithValidator(v Validator) LoaderOpt {
	return func(l *Loader) {
		l.v = v
	}
}

// Validate checks the raw document against the JSON schema without loading
// it into a [Registry].
func (l *Loader) Validate() error {
	var anyRegistry any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&anyRegistry)
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	err = l.v.Validate(anyRegistry)
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	return nil
}

// Load validates and decodes the registry descriptor.
func (l *Loader) Load() (*Registry, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	r := &Registry{}

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err = dec.Decode(r)
	if err != nil {
		return nil, l.yamlError.Wrap(err)
	}

	r.EnsureDefaults()

	return r, nil
}

// Wrap annotates an error produced while building or resolving this
// registry with its source document.
func (l *Loader) Wrap(err error) error {
	return l.yamlError.Wrap(err)
}
