package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner is a store that can drop expired sessions in bulk. Stores backed
// by an expiring cache do not need one.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// pruneTimeout bounds one scheduled pass.
const pruneTimeout = time.Minute

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Janitor prunes a store on a cron schedule. Start and Stop have the shape
// of startup and shutdown hooks.
//
//	j, err := session.NewJanitor(store, "@hourly", log)
//	app.Run(":8080", valkyrja.StartupHook(j.Start), valkyrja.ShutdownHook(j.Stop))
type Janitor struct {
	pruner Pruner
	cron   *cron.Cron
	logger *slog.Logger
}

// NewJanitor schedules p on spec: a five-field cron expression or a
// descriptor such as "@hourly" or "@every 30m". Overlapping passes are
// skipped and a panicking pass is logged, not fatal.
func NewJanitor(p Pruner, spec string, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cl := cronLogger{logger}
	j := &Janitor{
		pruner: p,
		logger: logger,
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	if _, err := j.cron.AddFunc(spec, j.scheduled); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	return j, nil
}

// Start begins the schedule. It does not block.
func (j *Janitor) Start(context.Context) error {
	j.cron.Start()
	return nil
}

// Stop ends the schedule and waits for a running pass, or for ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prune runs one pass now.
func (j *Janitor) Prune(ctx context.Context) (int64, error) {
	n, err := j.pruner.Prune(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "session prune failed", slog.Any("error", err))
		return 0, err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "expired sessions pruned", slog.Int64("count", n))
	}
	return n, nil
}

func (j *Janitor) scheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	_, _ = j.Prune(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kv, "error", err)...)
}
