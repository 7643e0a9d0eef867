package drupalentity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MediaType is the JSON:API media type sent in Accept and Content-Type headers
	MediaType = "application/vnd.api+json"

	// TypeSeparator joins entity type and bundle in a resource type ("node--article")
	TypeSeparator = "--"

	// FieldTypeEntityReference is the field_type Drupal reports for reference fields
	FieldTypeEntityReference = "entity_reference"

	attrNodeID    = "drupal_internal__nid"
	attrVersionID = "drupal_internal__vid"
)

// FieldKind tells whether a field is an attribute or a relationship
type FieldKind int

const (
	FieldAbsent FieldKind = iota
	FieldAttribute
	FieldRelationship
)

func (k FieldKind) String() string {
	switch k {
	case FieldAttribute:
		return "attribute"
	case FieldRelationship:
		return "relationship"
	default:
		return "absent"
	}
}

// Field is the value of a single entity field. Value is set for attributes,
// Relationship for relationships; an absent field carries neither.
type Field struct {
	Name         string
	Kind         FieldKind
	Value        any
	Relationship Relationship
}

// Present reports whether the field exists.
func (f Field) Present() bool {
	return f.Kind != FieldAbsent
}

// Raw returns the attribute value or the relationship descriptor.
func (f Field) Raw() any {
	switch f.Kind {
	case FieldAttribute:
		return f.Value
	case FieldRelationship:
		return f.Relationship
	default:
		return nil
	}
}

// ResourceIdentifier points at another resource from a relationship
type ResourceIdentifier struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Relationship is the reference descriptor {"data": ...} of a relationship
// field. Data holds a resource identifier, an array of them, an empty object
// placeholder or null.
type Relationship struct {
	Data json.RawMessage `json:"data"`
}

// EmptyRelationship returns the {"data":{}} placeholder used for required
// reference fields of a new entity.
func EmptyRelationship() Relationship {
	return Relationship{Data: json.RawMessage(`{}`)}
}

// NewRelationship encodes data as the relationship linkage.
func NewRelationship(data any) (Relationship, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Relationship{}, fmt.Errorf("failed to encode relationship data: %w", err)
	}
	return Relationship{Data: raw}, nil
}

// ToOne returns a relationship pointing at a single resource.
// It panics if id.Meta cannot be encoded as JSON.
func ToOne(id ResourceIdentifier) Relationship {
	rel, err := NewRelationship(id)
	if err != nil {
		panic(err)
	}
	return rel
}

// ToMany returns a relationship pointing at the given resources, in order.
// It panics if any Meta cannot be encoded as JSON.
func ToMany(ids ...ResourceIdentifier) Relationship {
	if ids == nil {
		ids = []ResourceIdentifier{}
	}
	rel, err := NewRelationship(ids)
	if err != nil {
		panic(err)
	}
	return rel
}

// IsEmpty reports whether the relationship points at nothing.
func (r Relationship) IsEmpty() bool {
	switch string(bytes.TrimSpace(r.Data)) {
	case "", "null", "{}", "[]":
		return true
	}
	return false
}

// Identifiers decodes the linkage into resource identifiers. A to-one
// linkage yields a single element; an empty linkage yields none.
func (r Relationship) Identifiers() ([]ResourceIdentifier, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(r.Data)
	if trimmed[0] == '[' {
		var ids []ResourceIdentifier
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, fmt.Errorf("failed to decode relationship data: %w", err)
		}
		return ids, nil
	}
	var id ResourceIdentifier
	if err := json.Unmarshal(trimmed, &id); err != nil {
		return nil, fmt.Errorf("failed to decode relationship data: %w", err)
	}
	return []ResourceIdentifier{id}, nil
}

// Resource is a JSON:API resource object. Links and meta sent by the server
// are not kept.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id,omitempty"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Document is a JSON:API document with a single resource as primary data
type Document struct {
	Data Resource `json:"data"`
}

// FieldDocument is the body sent to a relationship endpoint. Data is omitted
// when the field has no pending change.
type FieldDocument struct {
	Data json.RawMessage `json:"data,omitempty"`
}

// RequiredField is one record of the required-fields discovery response
type RequiredField struct {
	FieldName string `json:"field_name" yaml:"field_name"`
	FieldType string `json:"field_type" yaml:"field_type"`
}

// IsReference reports whether the field is an entity reference.
func (f RequiredField) IsReference() bool {
	return f.FieldType == FieldTypeEntityReference
}

// RequiredFieldsSerialization describes the required fields of a bundle
type RequiredFieldsSerialization struct {
	EntityType   string          `json:"entity_type" yaml:"entity_type"`
	EntityBundle string          `json:"entity_bundle" yaml:"entity_bundle"`
	Fields       []RequiredField `json:"fields" yaml:"fields"`
}

// ResourceType joins an entity type and bundle into a JSON:API resource type.
func ResourceType(entityType, bundle string) string {
	return entityType + TypeSeparator + bundle
}

// SplitResourceType splits "type--bundle". A string without separator yields
// an empty bundle; anything after a second separator is ignored.
func SplitResourceType(resourceType string) (entityType, bundle string) {
	parts := strings.Split(resourceType, TypeSeparator)
	entityType = parts[0]
	if len(parts) > 1 {
		bundle = parts[1]
	}
	return entityType, bundle
}
