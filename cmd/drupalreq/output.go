package main

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tendant/drupal-entity/pkg/drupalentity"
)

// printedRequest is the JSON form of a request descriptor. JSON:API bodies
// are embedded as JSON, binary bodies as base64.
type printedRequest struct {
	Method     string          `json:"method"`
	URL        string          `json:"url"`
	Headers    http.Header     `json:"headers"`
	Body       json.RawMessage `json:"body,omitempty"`
	BodyBase64 string          `json:"body_base64,omitempty"`
	BodySize   int             `json:"body_size,omitempty"`
}

func printRequest(w io.Writer, req *drupalentity.Request) error {
	out := printedRequest{
		Method:  req.Method,
		URL:     req.URL,
		Headers: req.Header,
	}
	if len(req.Body) > 0 {
		out.BodySize = len(req.Body)
		if req.Header.Get("Content-Type") == drupalentity.MediaType && json.Valid(req.Body) {
			out.Body = req.Body
		} else {
			out.BodyBase64 = base64.StdEncoding.EncodeToString(req.Body)
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
