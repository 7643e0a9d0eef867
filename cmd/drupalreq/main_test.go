package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://cms.example.com"

func execute(t *testing.T, stdin string, args ...string) (printedRequest, string, error) {
	t.Helper()
	t.Setenv("DRUPAL_BASE_URL", testBaseURL)
	t.Setenv("SOURCE_URL", "memory://")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "text")

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))

	err := cmd.Execute()
	var out printedRequest
	if err == nil && strings.HasPrefix(strings.TrimSpace(stdout.String()), "{") {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	}
	return out, stdout.String(), err
}

const articleResponse = `{"data": {
	"type": "node--article",
	"id": "8f14e45f-ceea-467a-9575-6f7c4b1c4c8a",
	"attributes": {"title": "Server title", "status": true, "drupal_internal__nid": 7},
	"relationships": {"uid": {"data": {"type": "user--user", "id": "c9f0f895-fb98-4b91-8f4c-0c5e1b7d4a12"}}}
}}`

func TestGetCommand(t *testing.T) {
	out, _, err := execute(t, "", "get", "--type", "node", "--bundle", "article", "--uuid", "8f14e45f-ceea-467a-9575-6f7c4b1c4c8a")
	require.NoError(t, err)
	assert.Equal(t, "GET", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/node/article?filter[id]=8f14e45f-ceea-467a-9575-6f7c4b1c4c8a", out.URL)
	assert.Equal(t, "application/vnd.api+json", out.Headers.Get("Accept"))
	assert.Empty(t, out.Body)

	t.Run("InvalidUUID", func(t *testing.T) {
		_, _, err := execute(t, "", "get", "--type", "node", "--bundle", "article", "--uuid", "not-a-uuid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid UUID")
	})

	t.Run("BaseURLFlag", func(t *testing.T) {
		out, _, err := execute(t, "", "--base-url", "http://localhost:8080", "get", "--type", "node", "--bundle", "page", "--uuid", "8f14e45f-ceea-467a-9575-6f7c4b1c4c8a")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out.URL, "http://localhost:8080/jsonapi/node/page"))
	})
}

func TestCreateCommand(t *testing.T) {
	out, _, err := execute(t, "", "create", "--type", "node", "--bundle", "article",
		"--set", "title=Hello",
		"--set", "status=true",
		"--relate", "uid=user--user:c9f0f895-fb98-4b91-8f4c-0c5e1b7d4a12",
		"--relate-many", "field_tags=")
	require.NoError(t, err)
	assert.Equal(t, "POST", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/node/article", out.URL)
	assert.JSONEq(t, `{"data":{
		"type":"node--article",
		"attributes":{"title":"Hello","status":true},
		"relationships":{
			"uid":{"data":{"type":"user--user","id":"c9f0f895-fb98-4b91-8f4c-0c5e1b7d4a12"}},
			"field_tags":{"data":[]}
		}
	}}`, string(out.Body))

	t.Run("RequiredFields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fields.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`entity_type: node
entity_bundle: article
fields:
  - field_name: field_summary
    field_type: string
  - field_name: field_image
    field_type: entity_reference
`), 0o644))

		out, _, err := execute(t, "", "create", "--required-fields", path, "--set", "title=Draft")
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":{
			"type":"node--article",
			"attributes":{"field_summary":"","title":"Draft"},
			"relationships":{"field_image":{"data":{}}}
		}}`, string(out.Body))
	})

	t.Run("MissingBundle", func(t *testing.T) {
		_, _, err := execute(t, "", "create", "--type", "node")
		require.Error(t, err)
	})

	t.Run("BadRelate", func(t *testing.T) {
		_, _, err := execute(t, "", "create", "--type", "node", "--bundle", "article", "--relate", "uid=user--user")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid resource identifier")
	})
}

func TestUpdateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "article.json")
	require.NoError(t, os.WriteFile(path, []byte(articleResponse), 0o644))

	out, _, err := execute(t, "", "update", "--from", path, "--set", "title=Edited")
	require.NoError(t, err)
	assert.Equal(t, "PATCH", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/node/article/8f14e45f-ceea-467a-9575-6f7c4b1c4c8a", out.URL)
	assert.JSONEq(t, `{"data":{
		"type":"node--article",
		"id":"8f14e45f-ceea-467a-9575-6f7c4b1c4c8a",
		"attributes":{"title":"Edited"}
	}}`, string(out.Body))

	t.Run("Stdin", func(t *testing.T) {
		out, _, err := execute(t, articleResponse, "update", "--from", "-", "--set", "status=false")
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":{
			"type":"node--article",
			"id":"8f14e45f-ceea-467a-9575-6f7c4b1c4c8a",
			"attributes":{"status":false}
		}}`, string(out.Body))
	})

	t.Run("EntityWithoutUUID", func(t *testing.T) {
		_, _, err := execute(t, `{"data":{"type":"node--article","attributes":{"title":"x"}}}`, "update", "--from", "-", "--set", "title=y")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing UUID")
	})
}

func TestRelationshipCommand(t *testing.T) {
	out, _, err := execute(t, articleResponse, "relationship", "--from", "-", "--field", "field_tags",
		"--relate-many", "field_tags=taxonomy_term--tags:1679091c-5a88-4faf-afb5-e6087eb1b2dc,taxonomy_term--tags:45c48cce-2e2d-4fbd-aa1a-fc51c7dcb4b6")
	require.NoError(t, err)
	assert.Equal(t, "PATCH", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/node/article/8f14e45f-ceea-467a-9575-6f7c4b1c4c8a/relationships/field_tags", out.URL)
	assert.JSONEq(t, `{"data":[
		{"type":"taxonomy_term--tags","id":"1679091c-5a88-4faf-afb5-e6087eb1b2dc"},
		{"type":"taxonomy_term--tags","id":"45c48cce-2e2d-4fbd-aa1a-fc51c7dcb4b6"}
	]}`, string(out.Body))

	t.Run("NoChange", func(t *testing.T) {
		_, _, err := execute(t, articleResponse, "relationship", "--from", "-", "--field", "field_tags")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no relationship change")
	})
}

func TestFieldConfigCommand(t *testing.T) {
	out, _, err := execute(t, "", "field-config", "--type", "media", "--bundle", "image")
	require.NoError(t, err)
	assert.Equal(t, "GET", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/field_config/field_config?filter[entity_type]=media&filter[bundle]=image", out.URL)
}

func TestRequiredFieldsCommand(t *testing.T) {
	_, stdout, err := execute(t, `{"data": [
		{"type": "field_config--field_config", "id": "f-1", "attributes": {
			"entity_type": "media", "bundle": "image", "field_name": "field_media_image", "field_type": "image", "required": true}},
		{"type": "field_config--field_config", "id": "f-2", "attributes": {
			"entity_type": "media", "bundle": "image", "field_name": "field_caption", "field_type": "string", "required": false}}
	]}`, "required-fields")
	require.NoError(t, err)
	assert.Contains(t, stdout, "entity_type: media")
	assert.Contains(t, stdout, "entity_bundle: image")
	assert.Contains(t, stdout, "field_name: field_media_image")
	assert.NotContains(t, stdout, "field_caption")
}

func TestUploadCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "photos"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photos", "cat.txt"), []byte("meow"), 0o644))

	out, _, err := execute(t, "", "--source", "file://"+dir, "upload", "--type", "media", "--bundle", "image", "--field", "field_media_image", "photos/cat.txt")
	require.NoError(t, err)
	assert.Equal(t, "POST", out.Method)
	assert.Equal(t, testBaseURL+"/jsonapi/media/image/field_media_image", out.URL)
	assert.Equal(t, "application/octet-stream", out.Headers.Get("Content-Type"))
	assert.Equal(t, `file; filename="cat.txt"`, out.Headers.Get("Content-Disposition"))
	assert.Equal(t, 4, out.BodySize)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("meow")), out.BodyBase64)

	t.Run("MemorySourceRejected", func(t *testing.T) {
		_, _, err := execute(t, "", "upload", "--type", "media", "--bundle", "image", "--field", "field_media_image", "photos/cat.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs a file or s3 source")
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, _, err := execute(t, "", "--source", "file://"+dir, "upload", "--type", "media", "--bundle", "image", "--field", "field_media_image", "photos/dog.txt")
		require.Error(t, err)
	})
}

func TestInvalidConfiguration(t *testing.T) {
	_, _, err := execute(t, "", "--log-level", "loud", "field-config", "--type", "node", "--bundle", "article")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
