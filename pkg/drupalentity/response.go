package drupalentity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type responseDocument struct {
	Data json.RawMessage `json:"data"`
}

// ParseResponse decodes a JSON:API response body into entities. Both a single
// resource and a collection are accepted; numbers are kept as json.Number.
func ParseResponse(r io.Reader) ([]*Entity, error) {
	var doc responseDocument
	if err := decodeJSON(r, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response document: %w", err)
	}
	data := bytes.TrimSpace(doc.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrEmptyDocument
	}

	var resources []Resource
	if data[0] == '[' {
		if err := decodeJSON(bytes.NewReader(data), &resources); err != nil {
			return nil, fmt.Errorf("failed to decode resources: %w", err)
		}
	} else {
		var res Resource
		if err := decodeJSON(bytes.NewReader(data), &res); err != nil {
			return nil, fmt.Errorf("failed to decode resource: %w", err)
		}
		resources = append(resources, res)
	}

	entities := make([]*Entity, 0, len(resources))
	for _, res := range resources {
		entities = append(entities, FromResource(res))
	}
	return entities, nil
}

// FromResponse decodes a response body and returns its first entity. This is
// what a GetRequest filtered on the UUID returns.
func FromResponse(r io.Reader) (*Entity, error) {
	entities, err := ParseResponse(r)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, ErrEmptyDocument
	}
	return entities[0], nil
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}
