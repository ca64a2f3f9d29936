package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunSchedulesRunsAllInOrder(t *testing.T) {
	var order []string
	errFirst := errors.New("first broke")
	schedules := []BotScheduleI{
		NewBotSchedule("first", "@hourly", func(ctx context.Context) error {
			order = append(order, "first")
			return errFirst
		}),
		NewBotSchedule("second", "@hourly", func(ctx context.Context) error {
			order = append(order, "second")
			return nil
		}),
	}

	err := RunSchedules(context.Background(), schedules)
	if !errors.Is(err, errFirst) {
		t.Fatalf("err = %v, want first schedule's error", err)
	}
	if !strings.Contains(err.Error(), "first:") {
		t.Errorf("error %q should name the schedule", err)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Fatalf("order = %v", order)
	}
}

func TestRunSchedulesNoErrors(t *testing.T) {
	ran := 0
	s := NewBotSchedule("ok", "0 * * * *", func(ctx context.Context) error {
		ran++
		return nil
	})
	if err := RunSchedules(context.Background(), []BotScheduleI{s, s}); err != nil {
		t.Fatalf("RunSchedules: %v", err)
	}
	if ran != 2 {
		t.Fatalf("ran = %d", ran)
	}
}

func TestScheduleManagerRejectsBadCron(t *testing.T) {
	sm := NewScheduleManager([]BotScheduleI{
		NewBotSchedule("bad", "not a cron", func(context.Context) error { return nil }),
	})
	if err := sm.Start(); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestScheduleManagerStartStop(t *testing.T) {
	sm := NewScheduleManager([]BotScheduleI{
		NewBotSchedule("hourly", "0 * * * *", func(context.Context) error { return nil }),
	})
	if err := sm.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	sm.Stop()
}
