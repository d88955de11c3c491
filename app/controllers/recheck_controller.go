package controllers

import (
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
)

type RecheckController struct {
	rechecks *services.RecheckService
	exports  *services.ExportService
}

func NewRecheckController(rechecks *services.RecheckService, exports *services.ExportService) *RecheckController {
	return &RecheckController{rechecks: rechecks, exports: exports}
}

func (r *RecheckController) Index(c *ctx.Context) {
	rows, err := r.rechecks.List(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(rows)
}

func (r *RecheckController) Store(c *ctx.Context) {
	var in services.RecheckInput
	if !c.BindJSON(&in) {
		return
	}
	rec, err := r.rechecks.Submit(c.Context(), c.Identity(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created("Recheck berhasil disimpan.", rec)
}

func (r *RecheckController) Update(c *ctx.Context) {
	var in services.UpdateRecheckInput
	if !c.BindJSON(&in) {
		return
	}
	rec, err := r.rechecks.Update(c.Context(), c.Identity(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Recheck diperbarui", rec)
}

func (r *RecheckController) Verify(c *ctx.Context) {
	rec, err := r.rechecks.Verify(c.Context(), c.Identity(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Recheck berhasil diverifikasi.", rec)
}

func (r *RecheckController) Destroy(c *ctx.Context) {
	if err := r.rechecks.Delete(c.Context(), c.Identity(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Recheck berhasil dihapus.", nil)
}

func (r *RecheckController) Summary(c *ctx.Context) {
	sum, err := r.rechecks.Summary(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(sum)
}

func (r *RecheckController) Export(c *ctx.Context) {
	exp, err := r.exports.Render(c.Context(), c.Identity(), services.ExportRechecks)
	if err != nil {
		fail(c, err)
		return
	}
	download(c, exp)
}

// AutoRecheck tells the caller whether today's recheck is already in.
func (r *RecheckController) AutoRecheck(c *ctx.Context) {
	done, err := r.rechecks.CheckTodaySubmitted(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Belum ada recheck hari ini. Silakan isi recheck secara manual."
	if done {
		msg = "Recheck already exists today."
	}
	c.Message(msg, map[string]bool{"submitted": done})
}
