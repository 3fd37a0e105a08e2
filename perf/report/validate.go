package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

// Schema returns the JSON Schema every Document conforms to.
func Schema() string { return schemaJSON }

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.schema.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("invalid report schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("report.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("invalid report schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateJSON checks an encoded document against the report schema. The
// returned error is a ValidationErrors listing every failed constraint.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return ValidationErrors{err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}

	if err := s.Validate(v); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			if errs := extractValidationErrors(verr); len(errs) > 0 {
				return errs
			}
		}
		return ValidationErrors{err}
	}
	return nil
}

// Validate encodes d and checks it against the report schema.
func (d Document) Validate() error {
	data, err := d.JSON(false)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return ValidateJSON(data)
}

// extractValidationErrors flattens the leaves of a validation error tree.
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	if len(err.Causes) == 0 && err.Message != "" {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		errs = append(errs, fmt.Errorf("validation error at %s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		errs = append(errs, extractValidationErrors(cause)...)
	}
	return errs
}
