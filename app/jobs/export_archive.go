// Package jobs holds queued background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/mmsi/orderdesk/app/services"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/logger"
	"github.com/mmsi/orderdesk/pkg/queue"
	"github.com/mmsi/orderdesk/pkg/storage"
)

const ExportArchiveName = "export.archive"

// ExportArchiveJob renders one report and stores it on a disk under
// exports/{kind}/{timestamp}.xlsx.
type ExportArchiveJob struct {
	Kind        string    `json:"kind"`
	RequestedBy string    `json:"requested_by"`
	Role        string    `json:"role"`
	RequestedAt time.Time `json:"requested_at"`

	exports *services.ExportService
	disk    storage.Disk
}

func (j *ExportArchiveJob) JobName() string { return ExportArchiveName }

// Path is where the archive lands for this request.
func (j *ExportArchiveJob) Path() string {
	return fmt.Sprintf("exports/%s/%s.xlsx", j.Kind, j.RequestedAt.UTC().Format("20060102T150405Z"))
}

func (j *ExportArchiveJob) Handle(ctx context.Context) error {
	if j.exports == nil || j.disk == nil {
		return fmt.Errorf("export archive: job not bound to services")
	}
	export, err := j.exports.Render(ctx, auth.Identity{ID: j.RequestedBy, Role: j.Role}, j.Kind)
	if err != nil {
		return err
	}
	if err := j.disk.Put(ctx, j.Path(), export.Body); err != nil {
		return fmt.Errorf("export archive: store %s: %w", j.Path(), err)
	}
	logger.Info("export archived", "kind", j.Kind, "path", j.Path(), "requested_by", j.RequestedBy)
	return nil
}

// Archiver queues export archives and binds decoded jobs to their services.
type Archiver struct {
	queue   *queue.Manager
	exports *services.ExportService
	disk    storage.Disk
}

// Register wires the archive job into q.
func Register(q *queue.Manager, exports *services.ExportService, disk storage.Disk) *Archiver {
	a := &Archiver{queue: q, exports: exports, disk: disk}
	q.Register(ExportArchiveName, func() queue.Job {
		return &ExportArchiveJob{exports: exports, disk: disk}
	})
	return a
}

// Enqueue validates kind and pushes an archive job for the caller.
func (a *Archiver) Enqueue(ctx context.Context, id auth.Identity, kind string) (*ExportArchiveJob, error) {
	known := false
	for _, k := range services.ExportKinds {
		known = known || k == kind
	}
	if !known {
		return nil, &services.ValidationError{Fields: map[string]string{"kind": "The selected kind is invalid."}}
	}
	job := &ExportArchiveJob{Kind: kind, RequestedBy: id.ID, Role: id.Role, RequestedAt: time.Now().UTC()}
	if err := a.queue.Dispatch(ctx, job); err != nil {
		return nil, fmt.Errorf("export archive: dispatch: %w", err)
	}
	return job, nil
}
