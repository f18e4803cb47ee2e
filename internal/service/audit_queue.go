package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditQueue implements ports.AuditRecorder: an in-memory staging buffer in
// front of the durable sink, drained in bounded batches on a fixed schedule.
//
// Enqueue only appends under the mutex and never rejects; the timer goroutine
// is the sole consumer, so at most one flush runs at a time. The sink write
// happens outside the critical section, so producers never wait on storage.
type AuditQueue struct {
	mu  sync.Mutex
	buf []domain.AuditEvent

	sink      ports.AuditSink
	alerter   ports.ChatPlatform // nil disables backlog alerts
	batchSize int
	threshold int
	interval  time.Duration
	log       zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewAuditQueue creates an audit queue. A non-positive backlogThreshold
// defaults to batchSize: the alert means "the queue grows faster than it
// drains".
func NewAuditQueue(sink ports.AuditSink, alerter ports.ChatPlatform, interval time.Duration, batchSize, backlogThreshold int, log zerolog.Logger) *AuditQueue {
	if backlogThreshold <= 0 {
		backlogThreshold = batchSize
	}
	return &AuditQueue{
		sink:      sink,
		alerter:   alerter,
		batchSize: batchSize,
		threshold: backlogThreshold,
		interval:  interval,
		log:       log,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Enqueue appends an event to the buffer. Fire-and-forget: economic callers
// never see audit storage failures. Missing id/timestamp are stamped here.
func (q *AuditQueue) Enqueue(event domain.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	q.mu.Lock()
	q.buf = append(q.buf, event)
	q.mu.Unlock()
}

// Len reports the current backlog.
func (q *AuditQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Start launches the flush timer. Call Close to stop it.
func (q *AuditQueue) Start(ctx context.Context) {
	go func() {
		defer close(q.done)
		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := q.Flush(ctx); err != nil {
					q.log.Warn().Err(err).Int("backlog", q.Len()).Msg("audit flush failed, batch re-queued")
				}
			case <-q.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Flush drains up to batchSize oldest events and writes them durably. On
// failure the removed events go back to the head of the buffer: nothing is
// lost and nothing duplicated at the buffer level, though the sink may see a
// duplicate if its write partially committed before failing.
func (q *AuditQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	n := len(q.buf)
	if n == 0 {
		q.mu.Unlock()
		return nil
	}
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]domain.AuditEvent, n)
	copy(batch, q.buf[:n])
	q.buf = q.buf[n:]
	q.mu.Unlock()

	if err := q.sink.WriteBatch(ctx, batch); err != nil {
		q.mu.Lock()
		q.buf = append(batch, q.buf...)
		backlog := len(q.buf)
		q.mu.Unlock()

		if backlog > q.threshold {
			q.alertBacklog(ctx, backlog)
		}
		return fmt.Errorf("audit batch write: %w", err)
	}
	return nil
}

// Close stops the timer and synchronously drains whatever remains.
func (q *AuditQueue) Close(ctx context.Context) error {
	close(q.stop)
	<-q.done

	for q.Len() > 0 {
		if err := q.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (q *AuditQueue) alertBacklog(ctx context.Context, backlog int) {
	if q.alerter == nil {
		return
	}
	msg := fmt.Sprintf("audit queue backlog at %d events (threshold %d); storage writes are failing or too slow", backlog, q.threshold)
	if err := q.alerter.SendAlert(ctx, msg); err != nil {
		q.log.Warn().Err(err).Msg("failed to deliver backlog alert")
	}
	q.log.Warn().Int("backlog", backlog).Int("threshold", q.threshold).Msg("audit backlog above threshold")
}
