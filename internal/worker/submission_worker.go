package worker

import (
	"context"
	"log/slog"

	"survey-system/internal/metrics"
)

// SubmissionEvent is emitted by the transport layers after response
// rows have been persisted.
type SubmissionEvent struct {
	SurveyID int64
	UserID   int64
	Rows     int
}

// SubmissionWorker drains submission events off the request path,
// feeding the submissions counter and the audit log.
type SubmissionWorker struct {
	Ch     <-chan SubmissionEvent
	logger *slog.Logger
}

func NewSubmissionWorker(ch <-chan SubmissionEvent, logger *slog.Logger) *SubmissionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionWorker{Ch: ch, logger: logger}
}

func (w *SubmissionWorker) Run(ctx context.Context) {
	w.logger.Info("submission worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("submission worker stopped")
			return
		case ev := <-w.Ch:
			metrics.AddSubmissions(ev.Rows)
			w.logger.Info("submission recorded",
				"survey_id", ev.SurveyID,
				"user_id", ev.UserID,
				"rows", ev.Rows,
			)
		}
	}
}
