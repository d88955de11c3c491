package ctx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mmsi/orderdesk/pkg/auth"
	appctx "github.com/mmsi/orderdesk/pkg/ctx"
	"github.com/mmsi/orderdesk/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	appctx.Wrap(func(c *appctx.Context) {
		c.Success(map[string]any{"id": "o-1"})
	})(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode(t, rec).Status)
}

func TestBindJSONMalformed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"stock":`))
	appctx.Wrap(func(c *appctx.Context) {
		var in struct {
			Stock string `json:"stock" validate:"required"`
		}
		assert.False(t, c.BindJSON(&in))
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", decode(t, rec).Status)
}

func TestBindJSONValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"stock":""}`))
	appctx.Wrap(func(c *appctx.Context) {
		var in struct {
			Stock string `json:"stock" validate:"required"`
		}
		assert.False(t, c.BindJSON(&in))
	})(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stock"`)
}

func TestParamAndQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/orders/{id}", appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "o-9", c.Param("id"))
		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 10, c.QueryInt("per_page", 10))
		c.Success(nil)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/o-9?page=3&per_page=x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{ID: "u-1", Role: auth.RoleNominee}))

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "u-1", c.Identity().ID)
		c.Success(nil)
	})(httptest.NewRecorder(), req)
}
