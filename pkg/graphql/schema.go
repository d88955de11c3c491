// Package graphql serves a graphql-go schema over HTTP. Requests carry
// their context through to resolvers, so identity set by middleware is
// visible in p.Context.
package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/mmsi/orderdesk/config"
)

// NewSchema builds a query-only schema.
func NewSchema(query *graphql.Object) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler executes POSTed {"query","variables"} bodies, or ?query= on GET.
// The result is written as a standard GraphQL response, not the REST
// envelope.
func Handler(schema graphql.Schema) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		switch r.Method {
		case http.MethodGet:
			req.Query = r.URL.Query().Get("query")
			req.OperationName = r.URL.Query().Get("operationName")
		case http.MethodPost:
			body := http.MaxBytesReader(w, r.Body, config.MaxBodyBytes())
			if err := json.NewDecoder(body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"errors": []map[string]string{{"message": "invalid request body"}},
				})
				return
			}
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		res := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        r.Context(),
		})
		writeJSON(w, http.StatusOK, res)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
