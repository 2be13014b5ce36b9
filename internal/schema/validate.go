// Package schema validates emitted match summaries against an embedded JSON Schema.
package schema

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/kaptinlin/jsonschema"
)

//go:embed summary.schema.json
var summarySchema []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiled, compileErr = compiler.Compile(summarySchema)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// ValidateSummary checks one JSON summary document.
func ValidateSummary(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

// ValidateSummaryFile reads path and validates it as a summary, an array of
// summaries, or one summary per line when the file holds JSON lines.
func ValidateSummaryFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if !jsontext.Value(trimmed).IsValid() {
		return ValidateSummaryLines(trimmed)
	}
	if bytes.HasPrefix(trimmed, []byte("[")) {
		return ValidateSummaryArray(trimmed)
	}
	return ValidateSummary(trimmed)
}

// ValidateSummaryArray validates every element of a JSON array of summaries.
func ValidateSummaryArray(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.ReadToken(); err != nil || tok.Kind() != '[' {
		return fmt.Errorf("schema validation failed: expected an array of summaries")
	}
	for i := 0; dec.PeekKind() != ']'; i++ {
		element, err := dec.ReadValue()
		if err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
		if err := validateJSON(schema, element); err != nil {
			return fmt.Errorf("array element %d: %w", i, err)
		}
	}
	return nil
}

// ValidateSummaryLines validates newline-delimited summaries.
func ValidateSummaryLines(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := validateJSON(schema, b); err != nil {
			return fmt.Errorf("jsonl line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	if !jsontext.Value(data).IsValid() {
		return fmt.Errorf("schema validation failed: not a single JSON value")
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
