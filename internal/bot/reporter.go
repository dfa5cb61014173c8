package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"task-tracker/internal/service"
)

// Reporter sends the overdue digest through a Notifier.
type Reporter struct {
	reminderSvc *service.ReminderService
	notifier    Notifier
	log         *zap.SugaredLogger
	now         func() time.Time
}

func NewReporter(reminderSvc *service.ReminderService, notifier Notifier, log *zap.SugaredLogger) *Reporter {
	return &Reporter{
		reminderSvc: reminderSvc,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// SendOverdueDigest builds the digest for the current day and delivers it.
// Nothing is sent when no task is overdue.
func (r *Reporter) SendOverdueDigest(ctx context.Context) error {
	text, err := r.reminderSvc.OverdueDigest(ctx, r.now())
	if err != nil {
		return err
	}
	if text == "" {
		r.log.Debug("no overdue tasks, digest skipped")
		return nil
	}
	return r.notifier.Notify(ctx, text)
}
