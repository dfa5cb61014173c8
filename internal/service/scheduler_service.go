package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of background work. It receives a context bounded by the
// scheduler's job timeout.
type Job func(ctx context.Context) error

// SchedulerService runs named background jobs on cron schedules. A job that
// is still running when its next tick fires is skipped for that tick.
type SchedulerService struct {
	cron       *cron.Cron
	log        *zap.SugaredLogger
	jobTimeout time.Duration
}

func NewSchedulerService(loc *time.Location, jobTimeout time.Duration, log *zap.SugaredLogger) *SchedulerService {
	if jobTimeout <= 0 {
		jobTimeout = time.Minute
	}
	cl := cronLogger{log: log}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:        log,
		jobTimeout: jobTimeout,
	}
}

// ScheduleDaily runs job every day at clock, an "HH:MM" string in the
// scheduler's location.
func (s *SchedulerService) ScheduleDaily(name, clock string, job Job) (cron.EntryID, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return 0, err
	}
	return s.add(name, fmt.Sprintf("0 %d %d * * *", minute, hour), job)
}

// ScheduleInterval runs job every interval, rounded down to whole seconds
// with a floor of one second.
func (s *SchedulerService) ScheduleInterval(name string, interval time.Duration, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("schedule %s: interval must be positive", name)
	}
	seconds := int(interval / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return s.add(name, fmt.Sprintf("@every %ds", seconds), job)
}

func (s *SchedulerService) add(name, schedule string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return 0, fmt.Errorf("schedule %s: %w", name, err)
	}
	return id, nil
}

func (s *SchedulerService) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := time.Now()
	if err := job(ctx); err != nil {
		s.log.Errorw("job failed", "job", name, "error", err, "duration", time.Since(started))
		return
	}
	s.log.Debugw("job finished", "job", name, "duration", time.Since(started))
}

// Entries reports how many jobs are registered.
func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *SchedulerService) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseClock(clock string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hour, minute, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
