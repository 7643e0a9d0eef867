package drupalentity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Entity is a Drupal content entity with its known field state and the
// fields edited since construction or the last hydration.
type Entity struct {
	entityType string
	bundle     string
	uuid       string

	nodeID    *int64
	versionID *int64

	fields  map[string]Field
	changes map[string]Field
}

// Option configures a new Entity
type Option func(*Entity)

// WithUUID sets the UUID of an entity that already exists on the server.
func WithUUID(id string) Option {
	return func(e *Entity) {
		if id != "" {
			e.uuid = id
		}
	}
}

// WithVersionID sets the revision id.
func WithVersionID(vid int64) Option {
	return func(e *Entity) {
		e.versionID = &vid
	}
}

// WithRequiredFields pre-populates the given fields with empty placeholders
// and records them as pending changes, so a create request always carries
// them. Reference fields get {"data":{}}, every other field "".
func WithRequiredFields(fields ...RequiredField) Option {
	return func(e *Entity) {
		for _, f := range fields {
			if f.IsReference() {
				e.EditRelationship(f.FieldName, EmptyRelationship())
			} else {
				e.EditAttribute(f.FieldName, "")
			}
		}
	}
}

// New creates an entity of the given type and bundle.
func New(entityType, bundle string, opts ...Option) *Entity {
	e := &Entity{
		entityType: entityType,
		bundle:     bundle,
		fields:     make(map[string]Field),
		changes:    make(map[string]Field),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// FromRequiredFields creates a new entity from a required-fields discovery
// record.
func FromRequiredFields(s RequiredFieldsSerialization) *Entity {
	return New(s.EntityType, s.EntityBundle, WithRequiredFields(s.Fields...))
}

// FromResource creates an entity hydrated from a server resource object.
func FromResource(r Resource) *Entity {
	e := New("", "")
	e.ApplySerializedData(r)
	return e
}

// ApplySerializedData replaces the entity state with a resource returned by
// the server. Relationships keep only their linkage; those without a data
// member are dropped. The entity is then in
// sync with the server, so the change overlay is cleared. A resource without
// id leaves the current UUID in place.
func (e *Entity) ApplySerializedData(r Resource) {
	e.entityType, e.bundle = SplitResourceType(r.Type)
	if r.ID != "" {
		e.uuid = r.ID
	}
	e.nodeID = intAttribute(r.Attributes, attrNodeID)
	e.versionID = intAttribute(r.Attributes, attrVersionID)

	e.fields = make(map[string]Field, len(r.Attributes)+len(r.Relationships))
	for name, rel := range r.Relationships {
		if len(rel.Data) == 0 {
			// links-only relationship, nothing to send back
			continue
		}
		e.fields[name] = Field{Name: name, Kind: FieldRelationship, Relationship: Relationship{Data: compact(rel.Data)}}
	}
	for name, value := range r.Attributes {
		e.fields[name] = Field{Name: name, Kind: FieldAttribute, Value: value}
	}
	e.changes = make(map[string]Field)
}

// Type returns the entity type ("node").
func (e *Entity) Type() string { return e.entityType }

// Bundle returns the bundle ("article").
func (e *Entity) Bundle() string { return e.bundle }

// UUID returns the entity UUID, empty for an entity not yet created.
func (e *Entity) UUID() string { return e.uuid }

// ResourceType returns the JSON:API resource type ("node--article").
func (e *Entity) ResourceType() string { return ResourceType(e.entityType, e.bundle) }

// IsNew reports whether the entity has no UUID yet.
func (e *Entity) IsNew() bool { return e.uuid == "" }

// NodeID returns the drupal_internal__nid of a hydrated entity.
func (e *Entity) NodeID() (int64, bool) {
	if e.nodeID == nil {
		return 0, false
	}
	return *e.nodeID, true
}

// VersionID returns the revision id.
func (e *Entity) VersionID() (int64, bool) {
	if e.versionID == nil {
		return 0, false
	}
	return *e.versionID, true
}

// Get returns the field with the given name, or an absent field.
func (e *Entity) Get(name string) Field {
	if f, ok := e.fields[name]; ok {
		return f
	}
	return Field{Name: name}
}

// GetValue returns the relationship descriptor or attribute value of a field.
func (e *Entity) GetValue(name string) (any, bool) {
	f, ok := e.fields[name]
	if !ok {
		return nil, false
	}
	return f.Raw(), true
}

// GetChange returns the pending change for a field, or an absent field.
func (e *Entity) GetChange(name string) Field {
	if f, ok := e.changes[name]; ok {
		return f
	}
	return Field{Name: name}
}

// EditAttribute sets an attribute and records the change.
func (e *Entity) EditAttribute(name string, value any) {
	f := Field{Name: name, Kind: FieldAttribute, Value: value}
	e.fields[name] = f
	e.changes[name] = f
}

// EditRelationship sets a relationship and records the change.
func (e *Entity) EditRelationship(name string, rel Relationship) {
	f := Field{Name: name, Kind: FieldRelationship, Relationship: rel}
	e.fields[name] = f
	e.changes[name] = f
}

// HasChanges reports whether any field was edited.
func (e *Entity) HasChanges() bool {
	return len(e.changes) > 0
}

// ChangedFields returns the names of edited fields, sorted.
func (e *Entity) ChangedFields() []string {
	names := make([]string, 0, len(e.changes))
	for name := range e.changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attributes returns a copy of the attribute state.
func (e *Entity) Attributes() map[string]any {
	attrs, _ := split(e.fields)
	return attrs
}

// Relationships returns a copy of the relationship state.
func (e *Entity) Relationships() map[string]Relationship {
	_, rels := split(e.fields)
	return rels
}

// DecodeAttributes decodes the attribute state into out, a pointer to a
// struct or map. Struct fields are matched on their json tag.
func (e *Entity) DecodeAttributes(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create attribute decoder: %w", err)
	}
	attrs, _ := split(e.fields)
	if err := dec.Decode(attrs); err != nil {
		return fmt.Errorf("failed to decode attributes of %s: %w", e.ResourceType(), err)
	}
	return nil
}

func split(fields map[string]Field) (map[string]any, map[string]Relationship) {
	var attrs map[string]any
	var rels map[string]Relationship
	for name, f := range fields {
		switch f.Kind {
		case FieldAttribute:
			if attrs == nil {
				attrs = make(map[string]any)
			}
			attrs[name] = f.Value
		case FieldRelationship:
			if rels == nil {
				rels = make(map[string]Relationship)
			}
			rels[name] = f.Relationship
		}
	}
	return attrs, rels
}

func intAttribute(attrs map[string]any, key string) *int64 {
	v, ok := attrs[key]
	if !ok {
		return nil
	}
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return nil
		}
		n = i
	case float64:
		if x != math.Trunc(x) {
			return nil
		}
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	return &n
}

func compact(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
