package queue

import (
	"time"

	"github.com/mmsi/orderdesk/pkg/logger"
)

// FailedJob is a job that exhausted its attempts.
type FailedJob struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobType  string    `gorm:"size:255;not null;index" json:"job_type"`
	Payload  string    `gorm:"type:text;not null" json:"payload"`
	Error    string    `gorm:"type:text" json:"error"`
	Attempts int       `gorm:"not null;default:0" json:"attempts"`
	FailedAt time.Time `gorm:"not null" json:"failed_at"`
}

func (FailedJob) TableName() string { return "failed_jobs" }

func (m *Manager) persistFailed(env envelope, cause error, attempts int) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	logger.Error("queue: job failed permanently", "type", env.Type, "attempts", attempts, "error", msg)
	if m.db == nil {
		return
	}
	rec := FailedJob{
		JobType:  env.Type,
		Payload:  string(env.Payload),
		Error:    msg,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	if err := m.db.Create(&rec).Error; err != nil {
		logger.Error("queue: persist failed job", "type", env.Type, "error", err)
	}
}

// Failed lists persisted failures, newest first.
func (m *Manager) Failed(limit int) ([]FailedJob, error) {
	var out []FailedJob
	if m.db == nil {
		return out, nil
	}
	err := m.db.Order("failed_at desc").Limit(limit).Find(&out).Error
	return out, err
}
