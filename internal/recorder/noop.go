package recorder

import (
	"context"

	"SignalDesk/internal/model"
)

// NoopRecorder is used when no storage is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordGroup(_ context.Context, _ *model.GroupAnalysisResult) error { return nil }
func (n *NoopRecorder) Close() error                                                      { return nil }
