package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/store"
)

const (
	defaultSweepBatchSize  = 50
	defaultStaleProcessing = 2 * time.Minute

	abandonedReason = "abandoned after stale claim"
)

// FollowUpStore is the outbox side of the repository.
type FollowUpStore interface {
	ClaimDueFollowUps(ctx context.Context, limit int, staleAfter time.Duration) ([]store.FollowUpMessage, error)
	MarkFollowUpSent(ctx context.Context, id int64, receipt string) error
	MarkFollowUpFailed(ctx context.Context, id int64, reason string) error
}

// FollowUpSweeper drains due rows from the follow-up outbox. Rows are claimed one
// at a time so a claim never waits behind other sends. Each row is attempted at
// most once; failures are recorded, not retried.
type FollowUpSweeper struct {
	repo        FollowUpStore
	mailer      Mailer
	logger      *slog.Logger
	batchSize   int
	staleAfter  time.Duration
	sendTimeout time.Duration
}

// NewFollowUpSweeper creates a sweeper. Zero values fall back to defaults.
// batchSize caps the rows sent per sweep.
func NewFollowUpSweeper(repo FollowUpStore, mailer Mailer, logger *slog.Logger, batchSize int, staleAfter, sendTimeout time.Duration) *FollowUpSweeper {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleProcessing
	}
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &FollowUpSweeper{
		repo:        repo,
		mailer:      mailer,
		logger:      logger,
		batchSize:   batchSize,
		staleAfter:  staleAfter,
		sendTimeout: sendTimeout,
	}
}

// Sweep is the cron entry point.
func (d *FollowUpSweeper) Sweep() {
	sent, err := d.flushOnce(context.Background())
	if err != nil {
		d.logger.Error("follow-up sweep failed", "error", err)
		return
	}
	if sent > 0 {
		d.logger.Info("follow-up sweep finished", "sent", sent)
	}
}

func (d *FollowUpSweeper) flushOnce(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < d.batchSize; i++ {
		messages, err := d.repo.ClaimDueFollowUps(ctx, 1, d.staleAfter)
		if err != nil {
			return sent, err
		}
		if len(messages) == 0 {
			break
		}
		for _, message := range messages {
			if d.deliver(ctx, message) {
				sent++
			}
		}
	}
	return sent, nil
}

// deliver sends one claimed row and records the outcome.
func (d *FollowUpSweeper) deliver(ctx context.Context, message store.FollowUpMessage) bool {
	// A second claim means an earlier sweeper stalled or lost its status update
	// after it may already have sent the mail.
	if message.Attempts > 1 {
		d.logger.Warn("abandoning follow-up after stale claim", "id", message.ID, "email", message.Email.To, "attempts", message.Attempts)
		if err := d.repo.MarkFollowUpFailed(ctx, message.ID, abandonedReason); err != nil {
			d.logger.Error("failed to mark follow-up as failed", "id", message.ID, "error", err)
		}
		return false
	}

	receipt, err := d.send(ctx, message)
	if err != nil {
		d.logger.Error("failed to send follow-up email", "id", message.ID, "email", message.Email.To, "error", err)
		if markErr := d.repo.MarkFollowUpFailed(ctx, message.ID, err.Error()); markErr != nil {
			d.logger.Error("failed to mark follow-up as failed", "id", message.ID, "error", markErr)
		}
		return false
	}
	d.logger.Info("follow-up email sent", "id", message.ID, "email", message.Email.To, "receipt", receipt)
	if err := d.repo.MarkFollowUpSent(ctx, message.ID, receipt); err != nil {
		d.logger.Error("failed to mark follow-up as sent", "id", message.ID, "error", err)
	}
	return true
}

func (d *FollowUpSweeper) send(ctx context.Context, message store.FollowUpMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.mailer.Send(ctx, message.Email)
}
