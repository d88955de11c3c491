package controllers

import (
	"errors"
	"net/http"

	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (a *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := a.auth.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Login berhasil.", res)
}

func (a *AuthController) Me(c *ctx.Context) {
	user, err := a.auth.Me(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

func (a *AuthController) Logout(c *ctx.Context) {
	if err := a.auth.Logout(c.Context(), c.Identity()); err != nil {
		fail(c, err)
		return
	}
	c.Message("Logout berhasil.", nil)
}

type verifyPinInput struct {
	Pin string `json:"pin" validate:"required"`
}

func (a *AuthController) VerifyPin(c *ctx.Context) {
	var in verifyPinInput
	if !c.BindJSON(&in) {
		return
	}
	err := a.auth.VerifyPin(c.Context(), c.Identity(), in.Pin)
	switch {
	case errors.Is(err, services.ErrInvalidPin):
		c.Error(http.StatusForbidden, "PIN tidak sesuai.")
	case err != nil:
		fail(c, err)
	default:
		c.Message("PIN valid.", map[string]bool{"valid": true})
	}
}

func (a *AuthController) RedirectDashboard(c *ctx.Context) {
	path, err := a.auth.DashboardPath(c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"redirect": path})
}
