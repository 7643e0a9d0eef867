package drupalentity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request describes an HTTP request against the Drupal JSON:API. It is not
// sent; use HTTPRequest to hand it to an http.Client.
type Request struct {
	Method string      `json:"method"`
	URL    string      `json:"url"`
	Header http.Header `json:"headers"`
	Body   []byte      `json:"-"`
}

// HTTPRequest builds an *http.Request from the descriptor.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", r.Method, r.URL, err)
	}
	if r.Header != nil {
		req.Header = r.Header.Clone()
	}
	return req, nil
}

var filenameEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func jsonAPIHeader() http.Header {
	h := make(http.Header)
	h.Set("Accept", MediaType)
	h.Set("Content-Type", MediaType)
	return h
}

func (e *Entity) collectionURL(baseURL string) string {
	return fmt.Sprintf("%s/jsonapi/%s/%s", strings.TrimSuffix(baseURL, "/"), e.entityType, e.bundle)
}

// GetRequest builds the request fetching the entity by UUID. Drupal answers
// with a collection filtered on the id.
func (e *Entity) GetRequest(baseURL string) *Request {
	return &Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s?filter[id]=%s", e.collectionURL(baseURL), e.uuid),
		Header: jsonAPIHeader(),
	}
}

// PostRequest builds the request creating the entity from its full state.
func (e *Entity) PostRequest(baseURL string) (*Request, error) {
	body, err := json.Marshal(e.Serialize())
	if err != nil {
		return nil, &EntityError{ResourceType: e.ResourceType(), Op: "post", Err: err}
	}
	return &Request{
		Method: http.MethodPost,
		URL:    e.collectionURL(baseURL),
		Header: jsonAPIHeader(),
		Body:   body,
	}, nil
}

// PatchRequest builds the request sending the pending changes. It fails with
// ErrMissingIdentifier when the entity has no UUID.
func (e *Entity) PatchRequest(baseURL string) (*Request, error) {
	if e.uuid == "" {
		return nil, &EntityError{ResourceType: e.ResourceType(), Op: "patch", Err: ErrMissingIdentifier}
	}
	body, err := json.Marshal(e.SerializeChanges())
	if err != nil {
		return nil, &EntityError{ResourceType: e.ResourceType(), UUID: e.uuid, Op: "patch", Err: err}
	}
	return &Request{
		Method: http.MethodPatch,
		URL:    fmt.Sprintf("%s/%s", e.collectionURL(baseURL), e.uuid),
		Header: jsonAPIHeader(),
		Body:   body,
	}, nil
}

// PatchRelationshipRequest builds the request replacing one relationship
// through its relationship endpoint. It fails with ErrMissingIdentifier when
// the entity has no UUID.
func (e *Entity) PatchRelationshipRequest(baseURL, fieldName string) (*Request, error) {
	if e.uuid == "" {
		return nil, &EntityError{ResourceType: e.ResourceType(), Op: "patch relationship", Err: ErrMissingIdentifier}
	}
	doc, err := e.SerializeChangesForField(fieldName)
	if err != nil {
		return nil, &EntityError{ResourceType: e.ResourceType(), UUID: e.uuid, Op: "patch relationship", Err: err}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, &EntityError{ResourceType: e.ResourceType(), UUID: e.uuid, Op: "patch relationship", Err: err}
	}
	return &Request{
		Method: http.MethodPatch,
		URL:    fmt.Sprintf("%s/%s/relationships/%s", e.collectionURL(baseURL), e.uuid, fieldName),
		Header: jsonAPIHeader(),
		Body:   body,
	}, nil
}

// FieldConfigRequest builds the request listing the field configuration of
// the entity bundle, used to discover required fields.
func (e *Entity) FieldConfigRequest(baseURL string) *Request {
	return &Request{
		Method: http.MethodGet,
		URL: fmt.Sprintf("%s/jsonapi/field_config/field_config?filter[entity_type]=%s&filter[bundle]=%s",
			strings.TrimSuffix(baseURL, "/"), e.entityType, e.bundle),
		Header: jsonAPIHeader(),
	}
}

// UploadBinaryRequest builds the request uploading binary into a file field.
func (e *Entity) UploadBinaryRequest(baseURL, fieldName, fileName string, binary []byte) *Request {
	h := jsonAPIHeader()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", fmt.Sprintf(`file; filename="%s"`, filenameEscaper.Replace(fileName)))
	return &Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s", e.collectionURL(baseURL), fieldName),
		Header: h,
		Body:   binary,
	}
}

// UploadFileRequest reads file fully and builds the upload request for it.
func (e *Entity) UploadFileRequest(ctx context.Context, baseURL, fieldName string, file File) (*Request, error) {
	binary, err := ReadFile(ctx, file)
	if err != nil {
		return nil, &EntityError{ResourceType: e.ResourceType(), UUID: e.uuid, Op: "upload", Err: err}
	}
	return e.UploadBinaryRequest(baseURL, fieldName, file.Name(), binary), nil
}
