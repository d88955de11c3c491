package controllers

import (
	"time"

	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
	"github.com/mmsi/orderdesk/pkg/validate"
)

type ActivityController struct {
	activity *services.ActivityService
	exports  *services.ExportService
}

func NewActivityController(activity *services.ActivityService, exports *services.ExportService) *ActivityController {
	return &ActivityController{activity: activity, exports: exports}
}

// Index lists activity rows. Filters: user_id, action_type, from, to,
// page, per_page. Non-admins always get their own rows.
func (a *ActivityController) Index(c *ctx.Context) {
	f := repositories.ActivityFilter{
		UserID:     c.Query("user_id"),
		ActionType: c.Query("action_type"),
		Page:       c.QueryInt("page", 1),
		PerPage:    c.QueryInt("per_page", 20),
	}
	errs := map[string]string{}
	if raw := c.Query("from"); raw != "" {
		t, err := validate.ParseDate(raw)
		if err != nil {
			errs["from"] = "The from is not a valid date."
		}
		f.From = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := validate.ParseDate(raw)
		if err != nil {
			errs["to"] = "The to is not a valid date."
		}
		if len(raw) == len(time.DateOnly) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = t
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return
	}

	rows, page, err := a.activity.List(c.Context(), c.Identity(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(rows, page)
}

func (a *ActivityController) Export(c *ctx.Context) {
	exp, err := a.exports.Render(c.Context(), c.Identity(), services.ExportActivity)
	if err != nil {
		fail(c, err)
		return
	}
	download(c, exp)
}
