package drupalentity

import (
	"encoding/json"
	"fmt"
)

// Serialize returns the full state as a JSON:API document, as sent when
// creating the entity. Empty attributes or relationships are left out.
func (e *Entity) Serialize() Document {
	attrs, rels := split(e.fields)
	return Document{Data: Resource{
		Type:          e.ResourceType(),
		Attributes:    attrs,
		Relationships: rels,
	}}
}

// SerializeChanges returns only the pending changes as a JSON:API document,
// as sent when updating the entity. The id is set when the entity has a UUID.
func (e *Entity) SerializeChanges() Document {
	attrs, rels := split(e.changes)
	return Document{Data: Resource{
		Type:          e.ResourceType(),
		ID:            e.uuid,
		Attributes:    attrs,
		Relationships: rels,
	}}
}

// SerializeChangesForField returns the body for a relationship endpoint
// holding the pending change of one field. For a relationship the linkage is
// sent once as data, not wrapped in a second data member; a relationship
// without linkage is sent as null. For an attribute, its value. Without a
// pending change the document is empty.
func (e *Entity) SerializeChangesForField(name string) (FieldDocument, error) {
	f := e.GetChange(name)
	switch f.Kind {
	case FieldRelationship:
		if len(f.Relationship.Data) == 0 {
			return FieldDocument{Data: json.RawMessage(`null`)}, nil
		}
		return FieldDocument{Data: f.Relationship.Data}, nil
	case FieldAttribute:
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return FieldDocument{}, fmt.Errorf("failed to encode field %s: %w", name, err)
		}
		return FieldDocument{Data: raw}, nil
	default:
		return FieldDocument{}, nil
	}
}
