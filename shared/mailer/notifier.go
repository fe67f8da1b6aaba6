package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by AsyncNotifier.Send when every buffered slot is taken. The message is dropped.
var ErrQueueFull = errors.New("notification buffer is full")

// ErrNotifierClosed is returned by AsyncNotifier.Send after Close.
var ErrNotifierClosed = errors.New("notifier is closed")

// Deliverer sends one plain text message.
type Deliverer interface {
	Deliver(ctx context.Context, to, subject, body string) error
}

type outbound struct {
	to, subject, body string
}

// AsyncNotifier buffers messages for a fixed set of workers. Each message gets exactly one delivery
// attempt; failures are logged and dropped.
type AsyncNotifier struct {
	deliverer Deliverer
	logger    *zerolog.Logger
	timeout   time.Duration
	queue     chan outbound

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncNotifier starts concurrency workers reading a buffer of bufferSize messages.
func NewAsyncNotifier(
	deliverer Deliverer,
	logger *zerolog.Logger,
	concurrency, bufferSize int,
	timeout time.Duration,
) *AsyncNotifier {
	if concurrency <= 0 {
		concurrency = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}

	n := &AsyncNotifier{
		deliverer: deliverer,
		logger:    logger,
		timeout:   timeout,
		queue:     make(chan outbound, bufferSize),
	}

	n.wg.Add(concurrency)
	for range concurrency {
		go n.work()
	}

	return n
}

// Send buffers the message without blocking. It never reports delivery failures to the caller.
func (n *AsyncNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}

	select {
	case n.queue <- outbound{to: to, subject: subject, body: body}:
		return nil
	default:
		n.logger.Warn().Str("to", to).Str("subject", subject).Msg("notification buffer full, email dropped")
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits until buffered ones are delivered or ctx is done.
func (n *AsyncNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *AsyncNotifier) work() {
	defer n.wg.Done()

	for msg := range n.queue {
		n.deliver(msg)
	}
}

func (n *AsyncNotifier) deliver(msg outbound) {
	// The request context is gone by the time the message goes out.
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.deliverer.Deliver(ctx, msg.to, msg.subject, msg.body); err != nil {
		n.logger.Warn().Err(err).Str("to", msg.to).Str("subject", msg.subject).Msg("failed to deliver email")
		return
	}

	n.logger.Debug().Str("to", msg.to).Str("subject", msg.subject).Msg("email delivered")
}
