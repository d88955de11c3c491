// Package testkit holds fixtures shared by the service and HTTP tests: a
// migrated in-memory database, users with known credentials, and request
// helpers that decode the response envelope.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mmsi/orderdesk/app/models"
	_ "github.com/mmsi/orderdesk/database/migrations"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/database"
	"github.com/mmsi/orderdesk/pkg/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	Password = "Secret123!"
	Pin      = "1234"
)

var seq atomic.Int64

// DB opens a private in-memory sqlite database with every migration
// applied.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, migration.New(db).WithOutput(io.Discard).Run())
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// User creates an active user of role whose password is Password and PIN
// is Pin.
func User(t *testing.T, db *gorm.DB, role, name string) models.User {
	t.Helper()
	password, err := auth.Hash(Password)
	require.NoError(t, err)
	pin, err := auth.Hash(Pin)
	require.NoError(t, err)

	u := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s.%d@test.local", strings.ToLower(strings.ReplaceAll(name, " ", ".")), seq.Add(1)),
		Role:     role,
		Password: password,
		Pin:      pin,
		Active:   true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Identity is the auth.Identity for u.
func Identity(u models.User) auth.Identity {
	return auth.Identity{ID: u.ID, Role: u.Role, Name: u.Name}
}

// Token signs a bearer token for u.
func Token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := auth.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return tok
}

// Envelope is the decoded JSON response body.
type Envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Response wraps a recorded response.
type Response struct {
	*httptest.ResponseRecorder
}

// Envelope decodes the body, failing the test on invalid JSON.
func (r Response) Envelope(t *testing.T) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &env), "body: %s", r.Body.String())
	return env
}

// Data decodes the envelope's data into dest.
func (r Response) Data(t *testing.T, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Envelope(t).Data, dest))
}

// Do sends a request through h. body is JSON-encoded unless nil; token is
// sent as a bearer header unless empty.
func Do(t *testing.T, h http.Handler, method, path, token string, body any) Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return Response{rec}
}
