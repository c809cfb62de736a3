// Package signalsets provides the SignalSet configuration kind for pick.
//
// A SignalSet is the project-local file describing the observed facts for
// one project. How its contents are collected is a collaborator's concern;
// pick only consumes the result.
package signalsets

import (
	"bytes"
	"fmt"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/pick/api"
	"github.com/macropower/pick/api/v1beta1"
	"github.com/macropower/pick/pkg/signal"
	"github.com/macropower/pick/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen/signals/main.go -o signalsets.v1beta1.json

var (
	// FileNames contains the valid names for project signal files.
	FileNames = []string{
		".pick.yaml",
		"pick.yaml",
	}

	//go:embed signalsets.v1beta1.json
	schemaJSON []byte

	// DefaultValidator validates signal files against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/signalsets.v1beta1.json", schemaJSON)

	// ValidKinds contains the valid kind values for signal files.
	ValidKinds = []string{"SignalSet"}

	// Compile-time interface checks.
	_ v1beta1.Object = (*SignalSet)(nil)
)

// SignalSet is the authored signal snapshot for one project.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type SignalSet struct {
	// Signals maps signal keys to observed values.
	Signals map[string]signal.Value `json:"signals,omitempty" jsonschema:"title=Signals"`

	v1beta1.TypeMeta `json:",inline"`

	// Project identifies the project the signals describe. Defaults to the
	// directory name of the signal file.
	Project string `json:"project,omitempty" jsonschema:"title=Project ID"`
}

// New creates an empty [SignalSet].
func New() *SignalSet {
	return &SignalSet{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "SignalSet",
		},
	}
}

// EnsureDefaults initializes nil fields to their default values.
func (s *SignalSet) EnsureDefaults() {
	if s.Signals == nil {
		s.Signals = map[string]signal.Value{}
	}
}

func (s SignalSet) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// Set returns the immutable runtime signal set.
func (s *SignalSet) Set() *signal.Set {
	return signal.NewSet(s.Signals)
}

// Find searches for a signal file starting from targetPath and walking up
// the directory tree. Returns an empty string if none is found.
func Find(targetPath string) (string, error) {
	path, err := api.FindConfigFile(targetPath, FileNames)
	if err != nil {
		return "", fmt.Errorf("find signal file: %w", err)
	}

	return path, nil
}

// LoadBytes validates and decodes a signal file from memory.
func LoadBytes(data []byte) (*SignalSet, error) {
	ew := yaml.NewErrorWrapper(yaml.WithSource(data))

	var anySet any

	dec := yaml.NewDecoder(bytes.NewReader(data))

	err := dec.Decode(&anySet)
	if err != nil {
		return nil, ew.Wrap(err)
	}

	err = DefaultValidator.Validate(anySet)
	if err != nil {
		return nil, ew.Wrap(err)
	}

	s := &SignalSet{}

	dec = yaml.NewDecoder(bytes.NewReader(data))

	err = dec.Decode(s)
	if err != nil {
		return nil, ew.Wrap(err)
	}

	s.EnsureDefaults()

	return s, nil
}

// LoadFile validates and decodes a signal file from disk.
func LoadFile(path string) (*SignalSet, error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signal file: %w", err)
	}

	s, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return s, nil
}
