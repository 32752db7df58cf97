package recorder

import (
	"context"
	"errors"

	"SignalDesk/internal/model"
)

// ErrNotFound is returned when no run has been recorded for a group.
var ErrNotFound = errors.New("no recorded run")

// Recorder persists group analysis runs.
type Recorder interface {
	RecordGroup(ctx context.Context, res *model.GroupAnalysisResult) error
	Close() error
}

// LatestReader returns the most recent recorded run of a group.
type LatestReader interface {
	LatestRun(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error)
}

// Multi fans a run out to several recorders. Every recorder is attempted; the
// errors are joined.
type Multi []Recorder

func (m Multi) RecordGroup(ctx context.Context, res *model.GroupAnalysisResult) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordGroup(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LatestRun asks each recorder that can answer, in order, and returns the first hit.
func (m Multi) LatestRun(ctx context.Context, groupID string) (*model.GroupAnalysisResult, error) {
	for _, r := range m {
		lr, ok := r.(LatestReader)
		if !ok {
			continue
		}
		res, err := lr.LatestRun(ctx, groupID)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
