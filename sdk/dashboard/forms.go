package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// EntityKind names one level of the catalog hierarchy.
type EntityKind string

const (
	KindBrand       EntityKind = "brand"
	KindVehicleLine EntityKind = "vehicleLine"
	KindModel       EntityKind = "model"
	KindTrim        EntityKind = "trim"
	KindOption      EntityKind = "option"
)

// FormSchema drives the generic CRUD form for one entity kind: which fields
// must be filled, and which field names the parent relationship. The parent
// is injected from scope on create and stripped from edit payloads — edits
// can never move an entity to another parent.
type FormSchema struct {
	Kind        EntityKind
	Required    []string
	ParentField string
}

// formSchemas is the lookup table behind every add/edit dialog.
var formSchemas = map[EntityKind]FormSchema{
	KindBrand:       {Kind: KindBrand, Required: []string{"name", "country"}},
	KindVehicleLine: {Kind: KindVehicleLine, Required: []string{"name"}, ParentField: "brand_id"},
	KindModel:       {Kind: KindModel, Required: []string{"name", "code"}, ParentField: "vehicle_line_id"},
	KindTrim:        {Kind: KindTrim, Required: []string{"name", "car_type"}, ParentField: "model_id"},
	KindOption:      {Kind: KindOption, Required: []string{"name", "code"}, ParentField: "trim_id"},
}

// SchemaFor returns the form schema for a kind.
func SchemaFor(kind EntityKind) (FormSchema, bool) {
	s, ok := formSchemas[kind]
	return s, ok
}

// ValidationError reports fields that failed local validation, caught before
// any network call.
type ValidationError struct {
	Kind   EntityKind
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s form: missing required fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// validate checks the required fields are present and non-empty.
func (s FormSchema) validate(fields map[string]any) error {
	var missing []string
	for _, name := range s.Required {
		v, ok := fields[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Kind: s.Kind, Fields: missing}
	}
	return nil
}

// EntityScope locates an entity's ancestors. Create and edit paths are built
// from it; only the levels above the target kind are consulted.
type EntityScope struct {
	VersionID string
	BrandID   string
	LineID    string
	ModelID   string
	TrimID    string
}

func (s EntityScope) collectionPath(kind EntityKind) (string, error) {
	switch kind {
	case KindBrand:
		if s.VersionID == "" {
			return "", fmt.Errorf("brand forms need a version scope")
		}
		return "/api/staging/versions/" + s.VersionID + "/brands", nil
	case KindVehicleLine:
		if s.VersionID == "" || s.BrandID == "" {
			return "", fmt.Errorf("vehicle line forms need version and brand scope")
		}
		return "/api/staging/versions/" + s.VersionID + "/brands/" + s.BrandID + "/vehicle-lines", nil
	case KindModel:
		if s.LineID == "" {
			return "", fmt.Errorf("model forms need a vehicle line scope")
		}
		return "/api/staging/vehicle-lines/" + s.LineID + "/models", nil
	case KindTrim:
		if s.ModelID == "" {
			return "", fmt.Errorf("trim forms need a model scope")
		}
		return "/api/staging/models/" + s.ModelID + "/trims", nil
	case KindOption:
		if s.TrimID == "" {
			return "", fmt.Errorf("option forms need a trim scope")
		}
		return "/api/staging/trims/" + s.TrimID + "/options", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// CreateEntity validates the form fields and posts the new entity into its
// scope. The parent relationship travels in the URL, never in the payload.
func (c *Client) CreateEntity(ctx context.Context, kind EntityKind, scope EntityScope, fields map[string]any) (json.RawMessage, error) {
	schema, ok := SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err := schema.validate(fields); err != nil {
		return nil, err
	}

	path, err := scope.collectionPath(kind)
	if err != nil {
		return nil, err
	}

	payload := stripParent(schema, fields)
	var created json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, payload, &created); err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	return created, nil
}

// UpdateEntity validates and sends an edit. The parent field is stripped so
// an edit cannot re-parent the entity.
func (c *Client) UpdateEntity(ctx context.Context, kind EntityKind, scope EntityScope, entityID string, fields map[string]any) (json.RawMessage, error) {
	schema, ok := SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err := schema.validate(fields); err != nil {
		return nil, err
	}

	base, err := scope.collectionPath(kind)
	if err != nil {
		return nil, err
	}

	payload := stripParent(schema, fields)
	var updated json.RawMessage
	if err := c.do(ctx, http.MethodPut, base+"/"+entityID, payload, &updated); err != nil {
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	return updated, nil
}

// DeleteEntity removes an entity and, server-side, its whole subtree. The
// confirmed flag is the local stand-in for the confirmation dialog: nothing
// is sent until it is set.
func (c *Client) DeleteEntity(ctx context.Context, kind EntityKind, scope EntityScope, entityID string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("delete %s: not confirmed", kind)
	}

	base, err := scope.collectionPath(kind)
	if err != nil {
		return err
	}

	if err := c.do(ctx, http.MethodDelete, base+"/"+entityID, nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return nil
}

func stripParent(schema FormSchema, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if schema.ParentField != "" && k == schema.ParentField {
			continue
		}
		out[k] = v
	}
	return out
}
