package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
)

type SystemController struct {
	users *services.UserService
	ping  func(context.Context) error
}

// NewSystemController takes the database probe used by Health.
func NewSystemController(users *services.UserService, ping func(context.Context) error) *SystemController {
	return &SystemController{users: users, ping: ping}
}

func (s *SystemController) AutoDeactivate(c *ctx.Context) {
	n, err := s.users.DeactivateInactive(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Message(fmt.Sprintf("Auto-deactivate berhasil. %d user dinonaktifkan.", n), map[string]int{"deactivated": n})
}

func (s *SystemController) Health(c *ctx.Context) {
	pctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := s.ping(pctx); err != nil {
		c.Error(http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.Success(map[string]string{"database": "ok"})
}
