package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultKey = "mailqueue:outbound"

// enqueueTimeout bounds a push once it is detached from the caller.
const enqueueTimeout = 3 * time.Second

// Message is a queued plain text email.
type Message struct {
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Deliverer sends one plain text message.
type Deliverer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

// Queue is a Redis list of outbound emails. Producers push on the left, the worker pops on the right.
type Queue struct {
	rdb redis.UniversalClient
	key string
}

// NewQueue creates a Queue stored under key.
func NewQueue(rdb redis.UniversalClient, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}

	return &Queue{rdb: rdb, key: key}
}

// Send enqueues a message. It returns once Redis has accepted it. The push outlives a cancelled caller
// context so a disconnecting client does not lose its notification.
func (q *Queue) Send(ctx context.Context, to, subject, body string) error {
	raw, err := json.Marshal(Message{
		To:         to,
		Subject:    subject,
		Body:       body,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode mail message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()

	if err := q.rdb.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("enqueue mail message: %w", err)
	}

	return nil
}

// Len returns the number of pending messages.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// pop waits up to timeout for a message. It returns redis.Nil when the queue stays empty.
func (q *Queue) pop(ctx context.Context, timeout time.Duration) (*Message, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		return nil, err
	}

	// BRPOP replies with [key, value].
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode mail message: %w", err)
	}

	return &msg, nil
}

// Worker drains a Queue into a Deliverer. A popped message is attempted once and never requeued.
type Worker struct {
	queue       *Queue
	deliverer   Deliverer
	logger      *zerolog.Logger
	pollTimeout time.Duration
	sendTimeout time.Duration
}

// NewWorker creates a Worker.
func NewWorker(queue *Queue, deliverer Deliverer, logger *zerolog.Logger, sendTimeout time.Duration) *Worker {
	return &Worker{
		queue:       queue,
		deliverer:   deliverer,
		logger:      logger,
		pollTimeout: 5 * time.Second,
		sendTimeout: sendTimeout,
	}
}

// Run processes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("key", w.queue.key).Msg("mail queue worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("mail queue worker stopped")
			return nil
		}

		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("mail queue poll failed")

			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne pops and delivers at most one message. It reports whether a message was popped.
// Delivery failures are logged, not returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	msg, err := w.queue.pop(ctx, w.pollTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.deliverer.Deliver(sendCtx, msg.To, msg.Subject, msg.Body); err != nil {
		w.logger.Warn().
			Err(err).
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Time("enqueued_at", msg.EnqueuedAt).
			Msg("failed to deliver queued email")
		return true, nil
	}

	w.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("queued email delivered")
	return true, nil
}
