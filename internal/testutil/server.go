package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/drupal-entity/pkg/drupalentity"
)

// FieldConfig is a field_config record served by the fake server
type FieldConfig struct {
	EntityType string `json:"entity_type"`
	Bundle     string `json:"bundle"`
	FieldName  string `json:"field_name"`
	FieldType  string `json:"field_type"`
	Required   bool   `json:"required"`
}

// UploadedFile records a binary upload received by the fake server
type UploadedFile struct {
	ID       string
	Field    string
	FileName string
	Data     []byte
}

// Drupal is an in-memory stand-in for the Drupal JSON:API module. It accepts
// exactly the routes and headers the request builders produce.
type Drupal struct {
	mu           sync.RWMutex
	resources    map[string]drupalentity.Resource
	fieldConfigs []FieldConfig
	uploads      []UploadedFile
	nextNID      int64
}

// NewDrupal creates an empty fake Drupal site
func NewDrupal(fieldConfigs ...FieldConfig) *Drupal {
	return &Drupal{
		resources:    make(map[string]drupalentity.Resource),
		fieldConfigs: fieldConfigs,
		nextNID:      1,
	}
}

// SetupTestServer starts an httptest server in front of d
func SetupTestServer(d *Drupal) *httptest.Server {
	return httptest.NewServer(d.Routes())
}

// Routes returns the JSON:API routes
func (d *Drupal) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/jsonapi", func(r chi.Router) {
		r.Get("/field_config/field_config", d.listFieldConfig)
		r.With(requireJSONAPI).Get("/{type}/{bundle}", d.list)
		r.With(requireJSONAPI).Post("/{type}/{bundle}", d.create)
		r.With(requireJSONAPI).Patch("/{type}/{bundle}/{id}", d.update)
		r.With(requireJSONAPI).Patch("/{type}/{bundle}/{id}/relationships/{field}", d.updateRelationship)
		r.Post("/{type}/{bundle}/{id}", d.upload)
	})
	return r
}

// Resource returns the stored resource with the given id
func (d *Drupal) Resource(id string) (drupalentity.Resource, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res, ok := d.resources[id]
	return res, ok
}

// Uploads returns the files uploaded so far
func (d *Drupal) Uploads() []UploadedFile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]UploadedFile(nil), d.uploads...)
}

func requireJSONAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != drupalentity.MediaType {
			writeError(w, r, http.StatusNotAcceptable, "Accept must be "+drupalentity.MediaType)
			return
		}
		if r.Method != http.MethodGet && r.Header.Get("Content-Type") != drupalentity.MediaType {
			writeError(w, r, http.StatusUnsupportedMediaType, "Content-Type must be "+drupalentity.MediaType)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (d *Drupal) list(w http.ResponseWriter, r *http.Request) {
	resourceType := drupalentity.ResourceType(chi.URLParam(r, "type"), chi.URLParam(r, "bundle"))
	id := r.URL.Query().Get("filter[id]")

	d.mu.RLock()
	data := []drupalentity.Resource{}
	for _, res := range d.resources {
		if res.Type == resourceType && (id == "" || res.ID == id) {
			data = append(data, res)
		}
	}
	d.mu.RUnlock()

	sort.Slice(data, func(i, j int) bool { return data[i].ID < data[j].ID })
	render.JSON(w, r, map[string]any{"data": data})
}

func (d *Drupal) create(w http.ResponseWriter, r *http.Request) {
	resourceType := drupalentity.ResourceType(chi.URLParam(r, "type"), chi.URLParam(r, "bundle"))

	var doc drupalentity.Document
	if err := render.DecodeJSON(r.Body, &doc); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if doc.Data.Type != resourceType {
		writeError(w, r, http.StatusConflict, fmt.Sprintf("type %q does not match %q", doc.Data.Type, resourceType))
		return
	}

	res := doc.Data
	res.ID = uuid.NewString()
	if res.Attributes == nil {
		res.Attributes = map[string]any{}
	}

	d.mu.Lock()
	res.Attributes["drupal_internal__nid"] = d.nextNID
	res.Attributes["drupal_internal__vid"] = d.nextNID
	d.nextNID++
	d.resources[res.ID] = res
	d.mu.Unlock()

	slog.Debug("Created resource", "type", res.Type, "id", res.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, drupalentity.Document{Data: res})
}

func (d *Drupal) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var doc drupalentity.Document
	if err := render.DecodeJSON(r.Body, &doc); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if doc.Data.ID != id {
		writeError(w, r, http.StatusBadRequest, "resource id in body does not match the URL")
		return
	}

	d.mu.Lock()
	res, ok := d.resources[id]
	if !ok {
		d.mu.Unlock()
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	for name, value := range doc.Data.Attributes {
		res.Attributes[name] = value
	}
	for name, rel := range doc.Data.Relationships {
		if res.Relationships == nil {
			res.Relationships = map[string]drupalentity.Relationship{}
		}
		res.Relationships[name] = rel
	}
	d.resources[id] = res
	d.mu.Unlock()

	render.JSON(w, r, drupalentity.Document{Data: res})
}

func (d *Drupal) updateRelationship(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	field := chi.URLParam(r, "field")

	var doc drupalentity.FieldDocument
	if err := render.DecodeJSON(r.Body, &doc); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(doc.Data) == 0 {
		writeError(w, r, http.StatusBadRequest, "relationship document has no data")
		return
	}

	d.mu.Lock()
	res, ok := d.resources[id]
	if !ok {
		d.mu.Unlock()
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if res.Relationships == nil {
		res.Relationships = map[string]drupalentity.Relationship{}
	}
	res.Relationships[field] = drupalentity.Relationship{Data: doc.Data}
	d.resources[id] = res
	d.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (d *Drupal) upload(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/octet-stream" {
		writeError(w, r, http.StatusUnsupportedMediaType, "Content-Type must be application/octet-stream")
		return
	}
	disposition, params, err := mime.ParseMediaType(r.Header.Get("Content-Disposition"))
	if err != nil || disposition != "file" || params["filename"] == "" {
		writeError(w, r, http.StatusBadRequest, "Content-Disposition must name the file")
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	file := UploadedFile{
		ID:       uuid.NewString(),
		Field:    chi.URLParam(r, "id"),
		FileName: params["filename"],
		Data:     data,
	}
	d.mu.Lock()
	d.uploads = append(d.uploads, file)
	d.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, drupalentity.Document{Data: drupalentity.Resource{
		Type: "file--file",
		ID:   file.ID,
		Attributes: map[string]any{
			"filename": file.FileName,
			"filesize": len(file.Data),
		},
	}})
}

func (d *Drupal) listFieldConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityType := q.Get("filter[entity_type]")
	bundle := q.Get("filter[bundle]")

	data := []map[string]any{}
	for i, fc := range d.fieldConfigs {
		if fc.EntityType != entityType || fc.Bundle != bundle {
			continue
		}
		data = append(data, map[string]any{
			"type":       "field_config--field_config",
			"id":         fmt.Sprintf("fc-%d", i),
			"attributes": fc,
		})
	}
	render.JSON(w, r, map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]any{
		"errors": []map[string]string{{
			"status": fmt.Sprint(status),
			"title":  strings.ToLower(http.StatusText(status)),
			"detail": detail,
		}},
	})
}
