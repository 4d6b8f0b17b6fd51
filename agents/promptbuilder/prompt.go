/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

// stringLiteral can only be produced from untyped string constants outside
// this package.
type stringLiteral string

// Value renders a bound placeholder.
type Value func() (string, error)

// Literal binds a developer-supplied literal verbatim.
func Literal(s stringLiteral) Value {
	return func() (string, error) { return string(s), nil }
}

// XML binds data marshaled with encoding/xml.
func XML(data any) Value {
	return func() (string, error) {
		b, err := xml.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling XML: %w", err)
		}
		return string(b), nil
	}
}

// JSON binds data marshaled with encoding/json.
func JSON(data any) Value {
	return func() (string, error) {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshaling JSON: %w", err)
		}
		return string(b), nil
	}
}

// YAML binds data marshaled with yaml.v3.
func YAML(data any) Value {
	return func() (string, error) {
		b, err := yaml.Marshal(data)
		if err != nil {
			return "", fmt.Errorf("marshaling YAML: %w", err)
		}
		return string(b), nil
	}
}

// Prompt is a template plus the values bound so far.
type Prompt struct {
	template string
	names    map[string]struct{}
	values   map[string]Value
}

// New parses template and records its placeholders.
func New(template stringLiteral) (*Prompt, error) {
	names := map[string]struct{}{}
	if _, err := expand(string(template), func(name string) (string, error) {
		names[name] = struct{}{}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{template: string(template), names: names, values: map[string]Value{}}, nil
}

// Placeholders returns the set of placeholder names in the template.
func (p *Prompt) Placeholders() map[string]struct{} {
	return maps.Clone(p.names)
}

// Bind returns a copy of p with name bound to v. Binding an unknown or
// already bound name is an error.
func (p *Prompt) Bind(name string, v Value) (*Prompt, error) {
	if _, ok := p.names[name]; !ok {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if _, ok := p.values[name]; ok {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	values := maps.Clone(p.values)
	values[name] = v
	return &Prompt{template: p.template, names: p.names, values: values}, nil
}

// Build renders the prompt. Every placeholder must be bound.
func (p *Prompt) Build() (string, error) {
	rendered := make(map[string]string, len(p.values))
	for name := range p.names {
		v, ok := p.values[name]
		if !ok {
			return "", fmt.Errorf("unbound placeholder: %s", name)
		}
		s, err := v()
		if err != nil {
			return "", fmt.Errorf("rendering %s: %w", name, err)
		}
		rendered[name] = s
	}
	return expand(p.template, func(name string) (string, error) {
		return rendered[name], nil
	})
}

// Bindable is implemented by request types that know how to fill a prompt.
type Bindable interface {
	Bind(prompt *Prompt) (*Prompt, error)
}

// Noop binds nothing.
type Noop struct{}

func (Noop) Bind(prompt *Prompt) (*Prompt, error) { return prompt, nil }

// Must panics when err is non-nil. It is meant for package-level templates.
func Must(p *Prompt, err error) *Prompt {
	if err != nil {
		panic(err)
	}
	return p
}

// MustNew is Must(New(template)).
func MustNew(template stringLiteral) *Prompt {
	return Must(New(template))
}
