// internal/db/runs.go
package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// powody zapisywane w issues
const (
	IssueSlotOverflow = "slot_overflow"
	IssueDuplicateMPN = "duplicate_mpn"
)

// StartRun rejestruje nowy przebieg (status running).
func (h *Handle) StartRun(ctx context.Context, inputFile, sha, supplier string, items int) (*Run, error) {
	run := &Run{
		UUID:      uuid.NewString(),
		InputFile: inputFile,
		SHA256:    sha,
		Supplier:  supplier,
		Items:     items,
		Status:    RunRunning,
	}
	if err := h.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun zapisuje liczniki ustawione na run oraz status końcowy.
func (h *Handle) FinishRun(ctx context.Context, run *Run, runErr error) error {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = RunDone
	run.LastError = ""
	if runErr != nil {
		run.Status = RunError
		run.LastError = runErr.Error()
	}
	return h.DB.WithContext(ctx).Save(run).Error
}

// LastRun – ostatni przebieg albo nil, gdy jeszcze nic nie uruchomiono
func (h *Handle) LastRun(ctx context.Context) (*Run, error) {
	var run Run
	err := h.DB.WithContext(ctx).Order("run_id desc").Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RecordIssue – upsert po (sku, reason, key); przy powtórce podbija licznik.
func (h *Handle) RecordIssue(ctx context.Context, sku, reason, key, details string) error {
	issue := Issue{SKU: sku, Reason: reason, IssueKey: key, Details: details, Seen: 1}
	return h.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "sku"},
			{Name: "reason"},
			{Name: "issue_key"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"details":    details,
			"seen":       gorm.Expr("seen + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&issue).Error
}

func (h *Handle) Issues(ctx context.Context) ([]Issue, error) {
	var out []Issue
	err := h.DB.WithContext(ctx).Order("updated_at desc").Find(&out).Error
	return out, err
}
