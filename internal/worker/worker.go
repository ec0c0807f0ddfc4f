package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/mailer"
	"github.com/eventvote/backend/pkg/queue"
	"github.com/eventvote/backend/pkg/storage"
)

// JobQueue is the queue side used by the worker loop.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EmailLogStore records email delivery outcomes.
type EmailLogStore interface {
	Insert(ctx context.Context, el *models.EmailLog) error
}

// Processor processes email delivery and image release jobs.
type Processor struct {
	queue   JobQueue
	mail    mailer.Sender
	logs    EmailLogStore
	images  storage.ImageStore
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewProcessor creates a job processor.
func NewProcessor(q JobQueue, mail mailer.Sender, logs EmailLogStore, images storage.ImageStore, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{queue: q, mail: mail, logs: logs, images: images, logger: logger, backoff: queue.RetryBackoff, now: time.Now}
}

// Process executes one job. A returned error means the job should be retried.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sendEmail(ctx, payload)
	case queue.JobTypeImageRelease:
		var payload queue.ImageReleasePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := p.images.Release(ctx, payload.Ref); err != nil {
			return fmt.Errorf("release image: %w", err)
		}
		p.logger.Info("image released", zap.String("event_id", payload.EventID), zap.String("ref", payload.Ref))
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) sendEmail(ctx context.Context, payload queue.EmailPayload) error {
	entry := &models.EmailLog{
		UserID:         payload.UserID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
	}
	err := p.mail.Send(mailer.Message{To: payload.RecipientEmail, Subject: payload.Subject, BodyHTML: payload.BodyHTML})
	if err != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = err.Error()
	} else {
		sent := p.now()
		entry.Status = models.EmailLogStatusSent
		entry.SentAt = &sent
	}
	if p.logs != nil {
		if lerr := p.logs.Insert(ctx, entry); lerr != nil {
			p.logger.Warn("email log insert failed", zap.Error(lerr))
		}
	}
	if errors.Is(err, mailer.ErrNotConfigured) {
		p.logger.Warn("email dropped: smtp not configured", zap.String("email_type", payload.EmailType))
		return nil
	}
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	p.logger.Info("email sent", zap.String("email_type", payload.EmailType), zap.String("to", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
