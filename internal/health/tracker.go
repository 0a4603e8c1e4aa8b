// Package health records scan outcomes per source and escalates repeated
// zero-result conditions for operator visibility.
package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"ContentCurator/internal/domain"
	"ContentCurator/internal/logging"
	"ContentCurator/internal/ports"
)

// zeroResultWarnThreshold is the consecutive zero-result count at which a
// source is flagged. No automatic deactivation happens.
const zeroResultWarnThreshold = 3

// Tracker classifies scan attempts and persists failures. Hard failures
// are additionally written to an append-only line log that survives
// database resets.
type Tracker struct {
	store   ports.FailureStore
	logger  *slog.Logger
	failLog *slog.Logger
	closer  io.Closer
}

// NewTracker opens (or creates) the durable failure log at failLogPath.
// An empty path disables the file log.
func NewTracker(store ports.FailureStore, logger *slog.Logger, failLogPath string) (*Tracker, error) {
	t := &Tracker{store: store, logger: logger}

	if failLogPath != "" {
		if dir := filepath.Dir(failLogPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create failure log dir: %w", err)
			}
		}
		f, err := os.OpenFile(failLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open failure log: %w", err)
		}
		t.failLog = logging.NewWithWriter(f, "info")
		t.closer = f
	}

	return t, nil
}

// Close releases the durable log file.
func (t *Tracker) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// RecordScanOutcome applies the per-attempt contract: a hard error is
// recorded with a zeroed counter, a zero-item success carries the prior
// consecutive count forward and increments it, and a productive scan
// writes nothing (implicit reset).
func (t *Tracker) RecordScanOutcome(ctx context.Context, src domain.Source, itemCount int, scanErr error) error {
	if scanErr != nil {
		failure := domain.SourceFailure{
			SourceID:     src.ID,
			SourceName:   src.Name,
			Type:         domain.FailureHardError,
			ErrorMessage: scanErr.Error(),
		}
		if err := t.store.InsertFailure(ctx, failure); err != nil {
			return fmt.Errorf("record hard failure for %s: %w", src.Name, err)
		}

		t.logger.Error("scan failed", "source", src.Name, "url", src.URL, "error", scanErr)
		if t.failLog != nil {
			t.failLog.Error("scan failed",
				"source", src.Name,
				"url", src.URL,
				"failure_type", string(domain.FailureHardError),
				"error", scanErr.Error())
		}
		return nil
	}

	if itemCount > 0 {
		return nil
	}

	last, err := t.store.LastZeroResultCount(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("load zero-result count for %s: %w", src.Name, err)
	}

	count := last + 1
	failure := domain.SourceFailure{
		SourceID:        src.ID,
		SourceName:      src.Name,
		Type:            domain.FailureZeroResults,
		ErrorMessage:    "scan returned 0 items",
		ConsecutiveZero: count,
	}
	if err := t.store.InsertFailure(ctx, failure); err != nil {
		return fmt.Errorf("record zero-result for %s: %w", src.Name, err)
	}

	if count >= zeroResultWarnThreshold {
		t.logger.Warn("source repeatedly returning zero results",
			"source", src.Name, "url", src.URL, "consecutive", count)
	} else {
		t.logger.Debug("scan returned no items", "source", src.Name, "consecutive", count)
	}

	return nil
}
