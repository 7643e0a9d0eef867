package drupalentity

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fieldConfigDocument struct {
	Data []struct {
		Attributes struct {
			EntityType string `json:"entity_type"`
			Bundle     string `json:"bundle"`
			FieldName  string `json:"field_name"`
			FieldType  string `json:"field_type"`
			Required   bool   `json:"required"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseFieldConfig reads the response of a FieldConfigRequest and returns
// the required fields it lists, in response order.
func ParseFieldConfig(r io.Reader) (RequiredFieldsSerialization, error) {
	var doc fieldConfigDocument
	if err := decodeJSON(r, &doc); err != nil {
		return RequiredFieldsSerialization{}, fmt.Errorf("failed to decode field config: %w", err)
	}

	var out RequiredFieldsSerialization
	for _, res := range doc.Data {
		attrs := res.Attributes
		if out.EntityType == "" {
			out.EntityType = attrs.EntityType
			out.EntityBundle = attrs.Bundle
		}
		if !attrs.Required {
			continue
		}
		out.Fields = append(out.Fields, RequiredField{FieldName: attrs.FieldName, FieldType: attrs.FieldType})
	}
	return out, nil
}

// LoadRequiredFields reads a required-fields record from a YAML or JSON file.
func LoadRequiredFields(path string) (RequiredFieldsSerialization, error) {
	var out RequiredFieldsSerialization
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("failed to read required fields: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse required fields %s: %w", path, err)
	}
	return out, nil
}
