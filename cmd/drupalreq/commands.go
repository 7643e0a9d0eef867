package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tendant/drupal-entity/pkg/drupalentity"
	"gopkg.in/yaml.v3"
)

// edits are the field changes given on the command line
type edits struct {
	set        []string
	relate     []string
	relateMany []string
}

func (ed *edits) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&ed.set, "set", nil, "set an attribute, name=value (JSON values are decoded)")
	cmd.Flags().StringArrayVar(&ed.relate, "relate", nil, "set a to-one relationship, field=type--bundle:uuid")
	cmd.Flags().StringArrayVar(&ed.relateMany, "relate-many", nil, "set a to-many relationship, field=type--bundle:uuid[,type--bundle:uuid]")
}

func (ed *edits) apply(e *drupalentity.Entity) error {
	for _, kv := range ed.set {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --set %q, expected name=value", kv)
		}
		e.EditAttribute(name, parseValue(raw))
	}
	for _, kv := range ed.relate {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --relate %q, expected field=type:id", kv)
		}
		id, err := parseIdentifier(raw)
		if err != nil {
			return err
		}
		e.EditRelationship(name, drupalentity.ToOne(id))
	}
	for _, kv := range ed.relateMany {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid --relate-many %q, expected field=type:id[,type:id]", kv)
		}
		var ids []drupalentity.ResourceIdentifier
		if raw != "" {
			for _, part := range strings.Split(raw, ",") {
				id, err := parseIdentifier(part)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
		}
		e.EditRelationship(name, drupalentity.ToMany(ids...))
	}
	return nil
}

// parseValue decodes raw as JSON when it is valid JSON and keeps it as a
// string otherwise.
func parseValue(raw string) any {
	if !json.Valid([]byte(raw)) {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}

func parseIdentifier(raw string) (drupalentity.ResourceIdentifier, error) {
	typ, id, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || typ == "" || id == "" {
		return drupalentity.ResourceIdentifier{}, fmt.Errorf("invalid resource identifier %q, expected type--bundle:uuid", raw)
	}
	if err := validateUUID(id); err != nil {
		return drupalentity.ResourceIdentifier{}, err
	}
	return drupalentity.ResourceIdentifier{Type: typ, ID: id}, nil
}

func validateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid UUID %q: %w", id, err)
	}
	return nil
}

func readEntity(cmd *cobra.Command, path string) (*drupalentity.Entity, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		r = bytes.NewReader(data)
	}
	e, err := drupalentity.FromResponse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity from %s: %w", path, err)
	}
	return e, nil
}

// NewGetCommand creates the get command
func NewGetCommand(a *app) *cobra.Command {
	var entityType, bundle, id string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Build the request fetching an entity by UUID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateUUID(id); err != nil {
				return err
			}
			e := drupalentity.New(entityType, bundle, drupalentity.WithUUID(id))
			return printRequest(cmd.OutOrStdout(), e.GetRequest(a.cfg.BaseURL))
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "entity type, e.g. node")
	cmd.Flags().StringVar(&bundle, "bundle", "", "bundle, e.g. article")
	cmd.Flags().StringVar(&id, "uuid", "", "entity UUID")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("uuid")

	return cmd
}

// NewCreateCommand creates the create command
func NewCreateCommand(a *app) *cobra.Command {
	var entityType, bundle, requiredFields string
	var ed edits

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build the request creating a new entity",
		Long: `Build the POST request creating a new entity.

With --required-fields, the entity starts with an empty placeholder for every
required field listed in the YAML or JSON file (see the required-fields command).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var e *drupalentity.Entity
			if requiredFields != "" {
				fields, err := drupalentity.LoadRequiredFields(requiredFields)
				if err != nil {
					return err
				}
				if entityType != "" {
					fields.EntityType = entityType
				}
				if bundle != "" {
					fields.EntityBundle = bundle
				}
				e = drupalentity.FromRequiredFields(fields)
				a.logger.Debug("Applied required fields", "count", len(fields.Fields))
			} else {
				e = drupalentity.New(entityType, bundle)
			}
			if e.Type() == "" || e.Bundle() == "" {
				return fmt.Errorf("entity type and bundle are required")
			}

			if err := ed.apply(e); err != nil {
				return err
			}
			req, err := e.PostRequest(a.cfg.BaseURL)
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "entity type, e.g. node")
	cmd.Flags().StringVar(&bundle, "bundle", "", "bundle, e.g. article")
	cmd.Flags().StringVar(&requiredFields, "required-fields", "", "YAML or JSON file listing required fields")
	ed.register(cmd)

	return cmd
}

// NewUpdateCommand creates the update command
func NewUpdateCommand(a *app) *cobra.Command {
	var from string
	var ed edits

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Build the request sending changes to an existing entity",
		Long: `Build the PATCH request for an entity previously returned by Drupal.

The entity is read from a JSON:API response (--from, "-" for stdin); only the
fields changed with --set, --relate and --relate-many are sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readEntity(cmd, from)
			if err != nil {
				return err
			}
			if err := ed.apply(e); err != nil {
				return err
			}
			if !e.HasChanges() {
				a.logger.Warn("No fields changed, the request carries no attributes", "uuid", e.UUID())
			}
			req, err := e.PatchRequest(a.cfg.BaseURL)
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "JSON:API response holding the entity")
	_ = cmd.MarkFlagRequired("from")
	ed.register(cmd)

	return cmd
}

// NewRelationshipCommand creates the relationship command
func NewRelationshipCommand(a *app) *cobra.Command {
	var from, field string
	var ed edits

	cmd := &cobra.Command{
		Use:   "relationship",
		Short: "Build the request replacing one relationship of an entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := readEntity(cmd, from)
			if err != nil {
				return err
			}
			if err := ed.apply(e); err != nil {
				return err
			}
			if e.GetChange(field).Kind != drupalentity.FieldRelationship {
				return fmt.Errorf("no relationship change for %s, use --relate or --relate-many", field)
			}
			req, err := e.PatchRelationshipRequest(a.cfg.BaseURL, field)
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "JSON:API response holding the entity")
	cmd.Flags().StringVar(&field, "field", "", "relationship field name")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("field")
	ed.register(cmd)

	return cmd
}

// NewFieldConfigCommand creates the field-config command
func NewFieldConfigCommand(a *app) *cobra.Command {
	var entityType, bundle string

	cmd := &cobra.Command{
		Use:   "field-config",
		Short: "Build the request listing the field configuration of a bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := drupalentity.New(entityType, bundle)
			return printRequest(cmd.OutOrStdout(), e.FieldConfigRequest(a.cfg.BaseURL))
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "entity type, e.g. node")
	cmd.Flags().StringVar(&bundle, "bundle", "", "bundle, e.g. article")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("bundle")

	return cmd
}

// NewRequiredFieldsCommand creates the required-fields command
func NewRequiredFieldsCommand(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "required-fields",
		Short: "Extract required fields from a field-config response",
		Long: `Read the response of the field-config request and print the required
fields as YAML, ready for create --required-fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if from != "-" {
				f, err := os.Open(from)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", from, err)
				}
				defer f.Close()
				r = f
			}

			fields, err := drupalentity.ParseFieldConfig(r)
			if err != nil {
				return err
			}
			a.logger.Debug("Discovered required fields", "entity_type", fields.EntityType, "bundle", fields.EntityBundle, "count", len(fields.Fields))

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(fields); err != nil {
				return fmt.Errorf("failed to write required fields: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&from, "from", "-", "field-config response, - for stdin")

	return cmd
}

// NewUploadCommand creates the upload command
func NewUploadCommand(a *app) *cobra.Command {
	var entityType, bundle, field string

	cmd := &cobra.Command{
		Use:   "upload <key>",
		Short: "Build the request uploading a file into a file field",
		Long: `Read a file from the configured source (SOURCE_URL or --source) and
build the binary upload request for a file field of the bundle. The in-memory
source starts empty on every run, so a file:// or s3:// source is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ctx := cmd.Context()

			spec, err := a.cfg.Source()
			if err != nil {
				return err
			}
			if spec.Type == "memory" {
				return fmt.Errorf("upload needs a file or s3 source, set SOURCE_URL or --source (got %q)", a.cfg.SourceURL)
			}

			store, err := a.cfg.BuildFileStore(ctx, a.logger)
			if err != nil {
				return err
			}
			meta, err := store.Stat(ctx, key)
			if err != nil {
				return err
			}
			a.logger.Info("Reading upload", "key", key, "size", meta.Size, "content_type", meta.ContentType)

			e := drupalentity.New(entityType, bundle)
			req, err := e.UploadFileRequest(ctx, a.cfg.BaseURL, field, drupalentity.StoreFile(store, key))
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), req)
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "entity type, e.g. media")
	cmd.Flags().StringVar(&bundle, "bundle", "", "bundle, e.g. image")
	cmd.Flags().StringVar(&field, "field", "", "file field name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}
