// Package notify emails the company and the customer about new submissions.
// Delivery is detached from the request: Notify enqueues and a worker sends.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"huanbo/internal/contact/models"
	"huanbo/pkg/platform/privacy"
)

const (
	defaultQueueSize   = 100
	defaultSendTimeout = 15 * time.Second
	defaultDrainWindow = 30 * time.Second
)

// Dispatcher queues submissions and sends their notification emails from a
// single worker. Notify never blocks and never fails.
type Dispatcher struct {
	mailer       Mailer
	companyEmail string
	location     *time.Location
	logger       *slog.Logger
	metrics      *Metrics
	limiter      *rate.Limiter
	breaker      *CircuitBreaker
	sendTimeout  time.Duration
	drainWindow  time.Duration

	queue chan models.Submission

	// mu orders Notify's enqueue against shutdown's final drain.
	mu      sync.RWMutex
	stopped bool
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithLocation(loc *time.Location) Option {
	return func(d *Dispatcher) {
		if loc != nil {
			d.location = loc
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan models.Submission, n)
		}
	}
}

// WithRatePerMinute paces sends against the relay's quota.
func WithRatePerMinute(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), min(n, 5))
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(d *Dispatcher) {
		d.breaker = cb
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithDrainWindow bounds how long Run keeps sending queued mail after
// shutdown starts.
func WithDrainWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		if window > 0 {
			d.drainWindow = window
		}
	}
}

func NewDispatcher(mailer Mailer, companyEmail string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:       mailer,
		companyEmail: companyEmail,
		location:     time.UTC,
		logger:       slog.Default(),
		limiter:      rate.NewLimiter(rate.Inf, 1),
		breaker:      NewCircuitBreaker(5, time.Minute),
		sendTimeout:  defaultSendTimeout,
		drainWindow:  defaultDrainWindow,
		queue:        make(chan models.Submission, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify enqueues sub for delivery. A full queue or a stopped dispatcher
// drops the notification and logs it.
func (d *Dispatcher) Notify(ctx context.Context, sub models.Submission) {
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		d.drop(ctx, sub, dropShutdown)
		return
	}
	select {
	case d.queue <- sub:
		d.mu.RUnlock()
		d.metrics.setQueueDepth(len(d.queue))
	default:
		d.mu.RUnlock()
		d.drop(ctx, sub, dropQueueFull)
	}
}

func (d *Dispatcher) drop(ctx context.Context, sub models.Submission, reason string) {
	d.metrics.incDropped(kindCompany, reason)
	if models.IsEmail(sub.Contact) {
		d.metrics.incDropped(kindCustomer, reason)
	}
	d.logger.WarnContext(ctx, "notification dropped",
		"submission_id", sub.ID,
		"reason", reason,
	)
}

// Run sends queued notifications until ctx is done, then drains what is left
// within the drain window.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.shutdown(ctx)
			return nil
		case sub := <-d.queue:
			d.metrics.setQueueDepth(len(d.queue))
			if ctx.Err() != nil {
				d.shutdown(ctx, sub)
				return nil
			}
			d.deliver(ctx, sub)
		}
	}
}

func (d *Dispatcher) shutdown(ctx context.Context, pending ...models.Submission) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainWindow)
	defer cancel()

	for _, sub := range pending {
		d.deliver(ctx, sub)
	}
	for {
		select {
		case sub := <-d.queue:
			d.metrics.setQueueDepth(len(d.queue))
			if ctx.Err() != nil {
				d.drop(ctx, sub, dropShutdown)
				continue
			}
			d.deliver(ctx, sub)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub models.Submission) {
	data := newTemplateData(sub, d.location)

	companyHTML, err := render(companyTemplate, data)
	if err != nil {
		d.metrics.incDropped(kindCompany, dropRender)
		d.logger.ErrorContext(ctx, "failed to render company notification", "submission_id", sub.ID, "error", err)
	} else {
		d.send(ctx, kindCompany, sub, Message{
			To:      d.companyEmail,
			Subject: companySubject(sub),
			HTML:    companyHTML,
		})
	}

	if !models.IsEmail(sub.Contact) {
		return
	}
	customerHTML, err := render(customerTemplate, data)
	if err != nil {
		d.metrics.incDropped(kindCustomer, dropRender)
		d.logger.ErrorContext(ctx, "failed to render customer acknowledgment", "submission_id", sub.ID, "error", err)
		return
	}
	d.send(ctx, kindCustomer, sub, Message{
		To:      sub.Contact,
		Subject: customerSubject,
		HTML:    customerHTML,
	})
}

func (d *Dispatcher) send(ctx context.Context, kind string, sub models.Submission, msg Message) {
	if !d.breaker.Allow() {
		d.metrics.incDropped(kind, dropCircuitOpen)
		d.logger.WarnContext(ctx, "mail circuit open, skipping notification",
			"submission_id", sub.ID,
			"kind", kind,
		)
		return
	}
	if err := d.limiter.Wait(ctx); err != nil {
		d.metrics.incDropped(kind, dropShutdown)
		d.logger.WarnContext(ctx, "notification not sent before shutdown",
			"submission_id", sub.ID,
			"kind", kind,
			"error", err,
		)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.mailer.Send(sendCtx, msg); err != nil {
		d.breaker.RecordFailure()
		d.metrics.setCircuitBreakerState(d.breaker.IsOpen())
		d.metrics.incFailed(kind)
		d.logger.ErrorContext(ctx, "failed to send notification",
			"submission_id", sub.ID,
			"kind", kind,
			"recipient", privacy.MaskContact(msg.To),
			"error", err,
		)
		return
	}
	d.breaker.RecordSuccess()
	d.metrics.setCircuitBreakerState(false)
	d.metrics.incSent(kind)
	d.logger.InfoContext(ctx, "notification sent",
		"submission_id", sub.ID,
		"kind", kind,
	)
}
