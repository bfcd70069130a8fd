package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSchemas(t *testing.T) {
	for _, kind := range []EntityKind{KindBrand, KindVehicleLine, KindModel, KindTrim, KindOption} {
		schema, ok := SchemaFor(kind)
		require.True(t, ok, kind)
		assert.NotEmpty(t, schema.Required)
	}

	t.Run("only brands have no parent", func(t *testing.T) {
		brand, _ := SchemaFor(KindBrand)
		assert.Empty(t, brand.ParentField)
		line, _ := SchemaFor(KindVehicleLine)
		assert.Equal(t, "brand_id", line.ParentField)
	})

	_, ok := SchemaFor(EntityKind("spaceship"))
	assert.False(t, ok)
}

func TestCreateEntity_Validation(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		writeEnvelope(w, http.StatusCreated, map[string]string{"id": "new"}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	scope := EntityScope{VersionID: "v1"}

	t.Run("missing fields never reach the network", func(t *testing.T) {
		_, err := c.CreateEntity(context.Background(), KindBrand, scope, map[string]any{"name": "Hyundai"})
		require.Error(t, err)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{"country"}, vErr.Fields)
		assert.EqualValues(t, 0, atomic.LoadInt64(&requests))
	})

	t.Run("whitespace counts as empty", func(t *testing.T) {
		_, err := c.CreateEntity(context.Background(), KindBrand, scope, map[string]any{"name": "  ", "country": "KR"})
		require.Error(t, err)
		assert.EqualValues(t, 0, atomic.LoadInt64(&requests))
	})

	t.Run("valid form posts", func(t *testing.T) {
		created, err := c.CreateEntity(context.Background(), KindBrand, scope, map[string]any{"name": "Hyundai", "country": "KR"})
		require.NoError(t, err)
		assert.NotNil(t, created)
		assert.EqualValues(t, 1, atomic.LoadInt64(&requests))
	})

	t.Run("incomplete scope is refused", func(t *testing.T) {
		_, err := c.CreateEntity(context.Background(), KindVehicleLine, EntityScope{VersionID: "v1"}, map[string]any{"name": "SUV"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "brand scope")
	})
}

func TestUpdateEntity_StripsParent(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeEnvelope(w, http.StatusOK, map[string]string{"id": "m1"}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	scope := EntityScope{LineID: "line-1"}

	// A stale form payload may still carry the parent FK; it must not travel.
	_, err := c.UpdateEntity(context.Background(), KindModel, scope, "m1", map[string]any{
		"name":            "Tucson",
		"code":            "NX4",
		"vehicle_line_id": "line-OTHER",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/staging/vehicle-lines/line-1/models/m1", gotPath)
	assert.NotContains(t, gotBody, "vehicle_line_id", "edits cannot re-parent an entity")
	assert.Equal(t, "Tucson", gotBody["name"])
}

func TestDeleteEntity_Confirmation(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		writeEnvelope(w, http.StatusOK, nil, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	scope := EntityScope{TrimID: "trim-1"}

	t.Run("unconfirmed delete sends nothing", func(t *testing.T) {
		err := c.DeleteEntity(context.Background(), KindOption, scope, "o1", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not confirmed")
		assert.EqualValues(t, 0, atomic.LoadInt64(&requests))
	})

	t.Run("confirmed delete goes through", func(t *testing.T) {
		require.NoError(t, c.DeleteEntity(context.Background(), KindOption, scope, "o1", true))
		assert.EqualValues(t, 1, atomic.LoadInt64(&requests))
	})
}
