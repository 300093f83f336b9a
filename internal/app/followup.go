package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

// ErrSchedulerStopped is returned by Schedule once the scheduler has been stopped.
var ErrSchedulerStopped = errors.New("follow-up scheduler stopped")

// TimerScheduler sends follow-up emails from in-process timers.
// Pending emails are lost if the process exits before they fire.
type TimerScheduler struct {
	mailer      Mailer
	logger      *slog.Logger
	sendTimeout time.Duration

	mu       sync.Mutex
	nextID   uint64
	timers   map[uint64]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
}

// NewTimerScheduler creates a TimerScheduler. sendTimeout bounds each delivery.
func NewTimerScheduler(mailer Mailer, logger *slog.Logger, sendTimeout time.Duration) *TimerScheduler {
	return &TimerScheduler{
		mailer:      mailer,
		logger:      logger,
		sendTimeout: sendTimeout,
		timers:      make(map[uint64]*time.Timer),
	}
}

// Schedule arms a timer for sendAfter. The context is not retained.
func (t *TimerScheduler) Schedule(_ context.Context, email domain.OutboundEmail, sendAfter time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrSchedulerStopped
	}

	id := t.nextID
	t.nextID++
	t.timers[id] = time.AfterFunc(time.Until(sendAfter), func() { t.fire(id, email) })
	return nil
}

// Pending reports how many follow-ups are waiting for their timer.
func (t *TimerScheduler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every pending timer, waits for sends already in flight and
// returns how many follow-ups were dropped.
func (t *TimerScheduler) Stop() int {
	t.mu.Lock()
	t.stopped = true
	dropped := 0
	for id, timer := range t.timers {
		if timer.Stop() {
			dropped++
		}
		delete(t.timers, id)
	}
	t.mu.Unlock()

	t.inflight.Wait()
	if dropped > 0 {
		t.logger.Warn("dropped pending follow-up emails on shutdown", "count", dropped)
	}
	return dropped
}

func (t *TimerScheduler) fire(id uint64, email domain.OutboundEmail) {
	t.mu.Lock()
	if _, ok := t.timers[id]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.timers, id)
	t.inflight.Add(1)
	t.mu.Unlock()
	defer t.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), t.sendTimeout)
	defer cancel()

	receipt, err := t.mailer.Send(ctx, email)
	if err != nil {
		t.logger.Error("failed to send follow-up email", "email", email.To, "error", err)
		return
	}
	t.logger.Info("follow-up email sent", "email", email.To, "receipt", receipt)
}

// FollowUpQueue persists follow-up emails for the sweeper.
type FollowUpQueue interface {
	EnqueueFollowUp(ctx context.Context, email domain.OutboundEmail, sendAfter time.Time) (int64, error)
}

// OutboxScheduler stores follow-ups in the database; a FollowUpSweeper sends them.
type OutboxScheduler struct {
	queue  FollowUpQueue
	logger *slog.Logger
}

// NewOutboxScheduler creates an OutboxScheduler.
func NewOutboxScheduler(queue FollowUpQueue, logger *slog.Logger) *OutboxScheduler {
	return &OutboxScheduler{queue: queue, logger: logger}
}

// Schedule inserts the follow-up into the outbox.
func (o *OutboxScheduler) Schedule(ctx context.Context, email domain.OutboundEmail, sendAfter time.Time) error {
	id, err := o.queue.EnqueueFollowUp(ctx, email, sendAfter)
	if err != nil {
		return err
	}
	o.logger.Info("follow-up email queued", "id", id, "email", email.To, "send_after", sendAfter)
	return nil
}
