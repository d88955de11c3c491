package controllers

import (
	"net/http"

	"github.com/mmsi/orderdesk/app/jobs"
	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/ctx"
	"github.com/mmsi/orderdesk/pkg/response"
)

type AdminController struct {
	users      *services.UserService
	executions *services.ExecutionService
	archiver   *jobs.Archiver
}

func NewAdminController(users *services.UserService, executions *services.ExecutionService, archiver *jobs.Archiver) *AdminController {
	return &AdminController{users: users, executions: executions, archiver: archiver}
}

func (a *AdminController) RegisterUser(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := a.users.Register(c.Context(), c.Identity(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created("User berhasil didaftarkan.", user)
}

func (a *AdminController) Users(c *ctx.Context) {
	users, err := a.users.List(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(users)
}

func (a *AdminController) ToggleUser(c *ctx.Context) {
	user, err := a.users.Toggle(c.Context(), c.Identity(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Status akun diperbarui.", user)
}

// Nominees serves both the admin and the strategist order form.
func (a *AdminController) Nominees(c *ctx.Context) {
	nominees, err := a.users.Nominees(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("Nominee aktif ditemukan.", nominees)
}

func (a *AdminController) NomineeInstructions(c *ctx.Context) {
	rows, err := a.executions.MonitorAll(c.Context(), c.Identity())
	if err != nil {
		fail(c, err)
		return
	}
	c.Message("All nominee instructions fetched successfully.", rows)
}

// ArchiveExport queues a report to be written to the storage disk.
func (a *AdminController) ArchiveExport(c *ctx.Context) {
	job, err := a.archiver.Enqueue(c.Context(), c.Identity(), c.Param("kind"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Write(c.W, http.StatusAccepted, response.Envelope{
		Status:  response.StatusSuccess,
		Message: "Export queued.",
		Data:    map[string]string{"kind": job.Kind, "path": job.Path()},
	})
}
