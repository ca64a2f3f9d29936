package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// BotScheduleI defines the interface for scheduled tasks in the bot
type BotScheduleI interface {
	// GetName returns the name of the schedule
	GetName() string
	// GetCronExpression returns the cron expression for when this schedule should run
	GetCronExpression() string
	// Execute runs the scheduled task once.
	Execute(ctx context.Context) error
}

// GenericBotSchedule is a generic implementation of BotScheduleI
type GenericBotSchedule struct {
	Name           string
	CronExpression string
	Handler        func(context.Context) error
}

func (bs *GenericBotSchedule) GetName() string {
	return bs.Name
}

func (bs *GenericBotSchedule) GetCronExpression() string {
	return bs.CronExpression
}

func (bs *GenericBotSchedule) Execute(ctx context.Context) error {
	return bs.Handler(ctx)
}

// NewBotSchedule creates a new scheduled task with the given name, cron expression, and handler
func NewBotSchedule(name string, cronExpr string, handler func(context.Context) error) BotScheduleI {
	return &GenericBotSchedule{
		Name:           name,
		CronExpression: cronExpr,
		Handler:        handler,
	}
}

// RunSchedules executes every schedule once, in order. A failing schedule is
// logged and does not stop the ones after it; the joined errors are returned.
func RunSchedules(ctx context.Context, schedules []BotScheduleI) error {
	var errs []error
	for _, schedule := range schedules {
		if err := executeSchedule(ctx, schedule); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", schedule.GetName(), err))
		}
	}
	return errors.Join(errs...)
}

func executeSchedule(ctx context.Context, schedule BotScheduleI) error {
	start := time.Now()
	slog.Debug("executing schedule", "name", schedule.GetName(), "cron", schedule.GetCronExpression())

	err := schedule.Execute(ctx)
	if err != nil {
		slog.Error("failed to execute schedule",
			"name", schedule.GetName(),
			"duration", time.Since(start),
			"error", err)
		return err
	}

	slog.Info("schedule finished", "name", schedule.GetName(), "duration", time.Since(start))
	return nil
}

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// ScheduleManager runs schedules in-process on their cron expressions.
type ScheduleManager struct {
	cron       *cron.Cron
	schedules  []BotScheduleI
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewScheduleManager creates a manager for schedules using standard
// five-field cron expressions. A run that is still going when its next tick
// fires is skipped rather than overlapped.
func NewScheduleManager(schedules []BotScheduleI) *ScheduleManager {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &ScheduleManager{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		schedules:  schedules,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start registers every schedule and starts the cron loop.
func (sm *ScheduleManager) Start() error {
	for _, schedule := range sm.schedules {
		sched := schedule
		_, err := sm.cron.AddFunc(sched.GetCronExpression(), func() {
			executeSchedule(sm.ctx, sched)
		})
		if err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", sched.GetName(), err)
		}
		slog.Info("registered schedule", "name", sched.GetName(), "cron", sched.GetCronExpression())
	}

	sm.cron.Start()
	slog.Info("schedule manager started", "schedules", len(sm.schedules))
	return nil
}

// Stop cancels running schedules and waits for them to return.
func (sm *ScheduleManager) Stop() {
	sm.cancelFunc()
	<-sm.cron.Stop().Done()
	slog.Info("schedule manager stopped")
}
