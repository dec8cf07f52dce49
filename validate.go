package modinput

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ArgumentValidationError reports a proposed configuration that does not
// satisfy the scheme's declared arguments. Its Error text is suitable for
// the <error><message> rejection document.
type ArgumentValidationError struct {
	Argument string
	Details  string
}

func (e *ArgumentValidationError) Error() string {
	if e.Argument != "" {
		return fmt.Sprintf("validation failed for argument '%s': %s", e.Argument, e.Details)
	}
	return fmt.Sprintf("validation failed: %s", e.Details)
}

// ValidateAgainstScheme checks a proposed configuration structurally
// against the scheme's declared arguments: required-on-create presence and
// data-type conformance. Parameters the scheme does not declare are
// allowed, since the host injects bookkeeping parameters of its own.
//
// This is the structural half of validation, intended for use inside a
// ValidateInput implementation. Semantic rules (ranges, relationships
// between arguments) remain the input's own business.
func ValidateAgainstScheme(scheme *Scheme, def *ValidationDefinition) error {
	document, err := coerceParameters(scheme, def.Parameters)
	if err != nil {
		return err
	}

	schemaBytes, err := json.Marshal(schemeJSONSchema(scheme))
	if err != nil {
		return fmt.Errorf("marshal scheme schema: %w", err)
	}
	documentBytes, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal proposed configuration: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader(documentBytes)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate proposed configuration: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return &ArgumentValidationError{Details: strings.Join(details, "; ")}
	}
	return nil
}

// schemeJSONSchema compiles a scheme's argument declarations into a JSON
// schema: one typed property per argument, required listing the arguments
// mandatory on create.
func schemeJSONSchema(scheme *Scheme) map[string]interface{} {
	props := make(map[string]interface{}, len(scheme.Arguments))
	var required []string
	for _, arg := range scheme.Arguments {
		props[arg.Name] = map[string]interface{}{"type": jsonTypeFor(arg.DataType)}
		if arg.RequiredOnCreate {
			required = append(required, arg.Name)
		}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonTypeFor(dt ArgumentDataType) string {
	switch dt {
	case DataTypeBoolean:
		return "boolean"
	case DataTypeNumber:
		return "number"
	default:
		return "string"
	}
}

// coerceParameters converts the proposed string parameters into typed JSON
// values per the scheme's declarations. A value that cannot be coerced is
// itself a validation failure.
func coerceParameters(scheme *Scheme, params []Parameter) (map[string]interface{}, error) {
	document := make(map[string]interface{}, len(params))
	for _, p := range params {
		arg, declared := scheme.Argument(p.Name)
		if p.Multi {
			values := make([]interface{}, 0, len(p.Values))
			for _, raw := range p.Values {
				v, err := coerceValue(arg, declared, p.Name, raw)
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			document[p.Name] = values
			continue
		}
		v, err := coerceValue(arg, declared, p.Name, p.Value())
		if err != nil {
			return nil, err
		}
		document[p.Name] = v
	}
	return document, nil
}

func coerceValue(arg *Argument, declared bool, name, raw string) (interface{}, error) {
	if !declared {
		return raw, nil
	}
	switch arg.DataType {
	case DataTypeBoolean:
		b, err := parseBooleanParam(raw)
		if err != nil {
			return nil, &ArgumentValidationError{Argument: name, Details: err.Error()}
		}
		return b, nil
	case DataTypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &ArgumentValidationError{Argument: name, Details: fmt.Sprintf("%q is not a number", raw)}
		}
		return f, nil
	default:
		return raw, nil
	}
}

// parseBooleanParam accepts the value spellings the host treats as booleans.
func parseBooleanParam(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", raw)
}
