package controllers

import (
	"errors"
	"net/http"

	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/response"
)

// fail maps a service error onto the response envelope. Anything that is
// not a known domain error is logged and reported as 500.
func fail(c *ctx.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.ValidationError(verr.Fields)
	case errors.Is(err, services.ErrEmailNotFound):
		c.Error(http.StatusUnauthorized, "Email tidak ditemukan.")
	case errors.Is(err, services.ErrWrongPassword):
		c.Error(http.StatusUnauthorized, "Password salah.")
	case errors.Is(err, services.ErrWrongPin):
		c.Error(http.StatusUnauthorized, "PIN salah.")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Error(http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, services.ErrAccountInactive):
		c.Error(http.StatusForbidden, "Akun Anda telah dinonaktifkan.")
	case errors.Is(err, services.ErrInvalidPin):
		c.Error(http.StatusForbidden, "Invalid PIN.")
	case errors.Is(err, services.ErrForbidden):
		response.Forbidden(c.W)
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c.W)
	case errors.Is(err, services.ErrAlreadyExecuted):
		c.Error(http.StatusConflict, "Instruction already executed.")
	default:
		logger.WithCtx(c.Context()).Error("request failed", "path", c.R.URL.Path, "error", err)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}

// download streams a rendered export.
func download(c *ctx.Context, exp services.Export) {
	if err := response.Attachment(c.W, exp.Filename, exp.ContentType, exp.Body); err != nil {
		logger.WithCtx(c.Context()).Warn("export: write failed", "kind", exp.Kind, "error", err)
	}
}
