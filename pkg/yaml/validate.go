package yaml

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator validates decoded YAML data against a JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a [Validator] from raw JSON schema data.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

// MustNewValidator creates a [Validator] and panics on error. Intended for
// embedded, generated schemas.
func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate checks data against the schema. On failure it returns an [Error]
// carrying the YAML path of the most specific violation, usable with
// [ErrorWrapper.Wrap] for annotated source output.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	path, pathErr := pathFromLocation(mostSpecificLocation(validationErr))
	if pathErr != nil {
		return &Error{Err: fmt.Errorf("schema validation: %w", validationErr)}
	}

	return &Error{
		Err:  validationErr,
		Path: path,
	}
}

// mostSpecificLocation finds the cause with the longest instance location,
// recursively. The deepest violation is the one worth pointing at.
func mostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		candidate := mostSpecificLocation(cause)
		if len(candidate) > len(longest) {
			longest = candidate
		}
	}

	return longest
}

// pathFromLocation converts a JSON instance location to a [yaml.Path].
func pathFromLocation(location []string) (*yaml.Path, error) {
	pb := NewPathBuilder()
	current := pb.Root()

	for _, part := range location {
		var index uint

		_, err := fmt.Sscanf(part, "%d", &index)
		if err == nil {
			current = current.Index(index)
		} else {
			current = current.Child(part)
		}
	}

	return current.Build(), nil
}
