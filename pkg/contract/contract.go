// Package contract publishes the shape of the device payload as an OpenAPI 3
// schema. Firmware authors read it to know which keys and ranges to expect;
// the session checks every outgoing payload against it before sending.
package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-devicecfg/pkg/payload"
	"github.com/goliatone/go-devicecfg/pkg/schema"
)

// SchemaName is the component name used in the published document.
const SchemaName = "DevicePayload"

// ErrViolation matches every payload that does not satisfy its contract.
var ErrViolation = errors.New("contract: payload violates contract")

// Contract is the OpenAPI object schema describing one payload.
type Contract struct {
	schema  *openapi3.Schema
	title   string
	version string
}

// Option customises Build.
type Option func(*Contract)

// WithInfo sets the title and version of the published document.
func WithInfo(title, version string) Option {
	return func(c *Contract) {
		if title != "" {
			c.title = title
		}
		if version != "" {
			c.version = version
		}
	}
}

// Build derives the payload contract of s: one required property per field,
// no additional properties.
func Build(s *schema.Schema, opts ...Option) *Contract {
	obj := openapi3.NewObjectSchema()
	obj.Properties = make(openapi3.Schemas, s.Len())
	closed := false
	obj.AdditionalProperties = openapi3.AdditionalProperties{Has: &closed}

	for f := range s.AllFields() {
		obj.Properties[f.Key()] = openapi3.NewSchemaRef("", property(f))
		obj.Required = append(obj.Required, f.Key())
	}

	c := &Contract{schema: obj, title: "Device payload", version: "1.0.0"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func property(f schema.Field) *openapi3.Schema {
	var out *openapi3.Schema
	switch field := f.(type) {
	case schema.Slider:
		out = numberSchema(field.Kind()).WithMin(field.Min).WithMax(field.Max)
	case schema.Toggle:
		out = openapi3.NewIntegerSchema()
		out.Enum = []any{float64(0), float64(1)}
	case schema.Select:
		out = numberSchema(field.Kind())
		for _, opt := range field.Options {
			out.Enum = append(out.Enum, opt.Value)
		}
	default:
		out = openapi3.NewFloat64Schema()
	}
	out.Title = f.DisplayLabel()
	return out
}

func numberSchema(kind schema.NumberKind) *openapi3.Schema {
	if kind == schema.NumberInteger {
		return openapi3.NewIntegerSchema()
	}
	return openapi3.NewFloat64Schema()
}

// Schema exposes the underlying OpenAPI schema.
func (c *Contract) Schema() *openapi3.Schema {
	return c.schema
}

// Check validates p against the contract. Violations wrap ErrViolation.
func (c *Contract) Check(p payload.Payload) error {
	doc := make(map[string]any, len(p))
	for key, value := range p {
		doc[key] = jsonNumber(value)
	}
	if err := c.schema.VisitJSON(doc, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%w: %w", ErrViolation, err)
	}
	return nil
}

// jsonNumber mirrors what a JSON round trip would hand the validator.
func jsonNumber(v any) any {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return v
	}
}

// Document wraps the schema in a minimal OpenAPI document under
// components/schemas.
func (c *Contract) Document() *openapi3.T {
	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: c.title, Version: c.version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{SchemaName: openapi3.NewSchemaRef("", c.schema)},
		},
	}
}

// Validate runs the OpenAPI document validator over the published document.
func (c *Contract) Validate(ctx context.Context) error {
	if err := c.Document().Validate(ctx); err != nil {
		return fmt.Errorf("contract: invalid document: %w", err)
	}
	return nil
}

// MarshalJSON publishes the contract as an OpenAPI document.
func (c *Contract) MarshalJSON() ([]byte, error) {
	return c.Document().MarshalJSON()
}
