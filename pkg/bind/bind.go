// Package bind decodes a JSON request body into a struct and validates it.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mmsi/orderdesk/config"
	"github.com/mmsi/orderdesk/pkg/validate"
)

// JSON decodes r.Body into dest, capped at MAX_BODY_BYTES.
// It returns (errs, nil) on validation failures and (nil, err) when the
// body is malformed or too large.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, config.MaxBodyBytes())

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
