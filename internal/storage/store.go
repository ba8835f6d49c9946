// Package storage keeps the history of analysis runs.
package storage

import (
	"context"
	"time"

	"slnlint/internal/coordinator"
	"slnlint/internal/diag"
)

// RunRecord is the stored summary of one run.
type RunRecord struct {
	ID         string
	Solution   string
	State      string
	Started    time.Time
	Duration   time.Duration
	ExitCode   int
	Errors     int
	Warnings   int
	Infos      int
	LoadErrors int
}

// History persists runs and their findings.
type History interface {
	// SaveRun upserts a run. Saving the same run id again replaces its
	// diagnostics and load errors.
	SaveRun(ctx context.Context, run *coordinator.Run) error

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// RunDiagnostics returns the diagnostics of one run in output order.
	RunDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error)

	Close() error
}
