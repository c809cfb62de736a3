// Package yaml wraps [github.com/goccy/go-yaml] with schema validation and
// path-annotated error reporting for pick's configuration kinds.
package yaml

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

// NewPathBuilder returns a builder for YAML paths, used to attach locations
// to validation errors.
func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// ErrorWrapper applies a fixed set of options to every wrapped [Error],
// typically the source document being loaded.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{Opts: opts}
}

// Wrap enriches an [Error] with the wrapper's options. Errors of any other
// type are returned unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}

		return yamlErr
	}

	return err
}

// Error is a YAML loading or validation error, optionally located at a path
// or token within the source document.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}

	tk := e.Token
	if tk == nil && e.Path != nil && len(e.Source) > 0 {
		tk, _ = tokenAtPath(e.Source, e.Path)
	}

	if tk == nil {
		if e.Path != nil {
			return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
		}

		return e.Err.Error()
	}

	var pp printer.Printer

	annotated := pp.PrintErrorToken(tk, false)

	return fmt.Sprintf("[%d:%d] %v:\n%s", tk.Position.Line, tk.Position.Column, e.Err, annotated)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// tokenAtPath locates the token for a YAML path within source.
func tokenAtPath(source []byte, path *yaml.Path) (*token.Token, error) {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("filter by path: %w", err)
	}

	return node.GetToken(), nil
}
