package graphql

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) graphql.Schema {
	t.Helper()
	schema, err := NewSchema(graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"ping": &graphql.Field{
				Type: graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return "pong", nil
				},
			},
		},
	}))
	require.NoError(t, err)
	return schema
}

func TestHandlerPost(t *testing.T) {
	h := Handler(testSchema(t))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/graphql", strings.NewReader(`{"query":"{ ping }"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "pong", out.Data["ping"])
}

func TestHandlerGetAndBadBody(t *testing.T) {
	h := Handler(testSchema(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graphql?query=%7Bping%7D", nil))
	assert.Contains(t, rec.Body.String(), "pong")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/graphql", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
