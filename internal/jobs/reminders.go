package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Ananth-NQI/choptime-backend/internal/services"
	"github.com/Ananth-NQI/choptime-backend/internal/storage"
)

// PendingOrderReminder periodically tells admins about orders nobody confirmed yet
type PendingOrderReminder struct {
	store    storage.Store
	notifier *services.Notifier
	interval time.Duration
	age      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewPendingOrderReminder creates the job. interval 0 disables it.
func NewPendingOrderReminder(store storage.Store, notifier *services.Notifier, interval, age time.Duration) *PendingOrderReminder {
	return &PendingOrderReminder{
		store:    store,
		notifier: notifier,
		interval: interval,
		age:      age,
		now:      time.Now,
	}
}

// Start runs the job in the background until Stop or ctx is done
func (j *PendingOrderReminder) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.interval <= 0 {
		slog.Info("Pending order reminders disabled")
		return
	}
	if j.isRunning {
		slog.Warn("Pending order reminders already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	j.isRunning = true

	go j.loop(ctx, j.done)
	slog.Info("⏰ Pending order reminders started", "interval", j.interval, "age", j.age)
}

// Stop halts the job and waits for a running pass to finish
func (j *PendingOrderReminder) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = false
	j.cancel()
	done := j.done
	j.mu.Unlock()

	<-done
	slog.Info("Pending order reminders stopped")
}

func (j *PendingOrderReminder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				slog.Error("Pending order reminder failed", "error", err)
			}
		}
	}
}

// RunOnce sends one reminder covering every order pending for longer than the
// configured age. It returns the number of orders listed.
func (j *PendingOrderReminder) RunOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.age)

	orders, err := j.store.GetPendingOrdersOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending orders: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	outcomes := j.notifier.NotifyAdmins(ctx, services.PendingReminderText(orders))
	failed := 0
	for _, o := range outcomes {
		if !o.Delivered() {
			failed++
		}
	}
	slog.Info("⏰ Pending order reminder sent", "orders", len(orders), "admins", len(outcomes), "failed", failed)
	return len(orders), nil
}
