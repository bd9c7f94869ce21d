// Package store persists review records keyed by review id. Writes during a
// run are partial patches; every backend applies them with Record.Apply so
// the merge semantics are identical across SQLite, Redis and memory.
package store

import (
	"context"
	"errors"
	"time"

	"scriptreview/internal/report"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (e.g. .scriptreview).
const DefaultDBPath = ".scriptreview/reviews.db"

// ErrNotFound is returned when no record exists for a review id.
var ErrNotFound = errors.New("store: review not found")

// Status is the lifecycle state of a review record.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Record is one persisted review.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Stages    map[string]string `json:"stages,omitempty"`
	Legal     *report.Legal     `json:"legal,omitempty"`
	Policy    *report.Policy    `json:"policy,omitempty"`
	Research  *report.Research  `json:"research,omitempty"`
	Report    *report.Report    `json:"report,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Status   *Status
	Error    *string
	Stage    *StageStatus
	Legal    *report.Legal
	Policy   *report.Policy
	Research *report.Research
	Report   *report.Report
}

// StageStatus records one stage's latest status.
type StageStatus struct {
	Name   string
	Status string
}

// StatusPatch is a shorthand for a status-only patch.
func StatusPatch(s Status) Patch { return Patch{Status: &s} }

// FailedPatch marks a record failed with msg.
func FailedPatch(msg string) Patch {
	s := StatusFailed
	return Patch{Status: &s, Error: &msg}
}

// Apply merges p into r and bumps UpdatedAt.
func (r *Record) Apply(p Patch, now time.Time) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Error != nil {
		r.Error = *p.Error
	}
	if p.Stage != nil {
		if r.Stages == nil {
			r.Stages = make(map[string]string)
		}
		r.Stages[p.Stage.Name] = p.Stage.Status
	}
	if p.Legal != nil {
		r.Legal = p.Legal
	}
	if p.Policy != nil {
		r.Policy = p.Policy
	}
	if p.Research != nil {
		r.Research = p.Research
	}
	if p.Report != nil {
		r.Report = p.Report
	}
	r.UpdatedAt = now
}

// Store is the persistence facade for review records.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, id string, p Patch) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns records newest first.
	List(ctx context.Context, limit int) ([]*Record, error)
	Close() error
}

func nowUTC() time.Time { return time.Now().UTC() }
