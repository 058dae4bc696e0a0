// Package alert provides the alerting collaborator that surfaces failures to
// the user, plus an auto-dismissing queue of active alerts.
package alert

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

//go:generate mockgen -destination=mocks/mock_alert.go -package=mocks -source=alert.go Alerter

// DefaultDismissAfter is how long the oldest alert stays visible
const DefaultDismissAfter = 5 * time.Second

// Alerter receives human-readable failure messages
type Alerter interface {
	AddAlert(message string)
}

// Func adapts a function to the Alerter interface
type Func func(message string)

// AddAlert calls f(message)
func (f Func) AddAlert(message string) {
	f(message)
}

// Multi fans every alert out to each of its alerters in order
type Multi []Alerter

// AddAlert forwards message to every alerter
func (m Multi) AddAlert(message string) {
	for _, a := range m {
		if a != nil {
			a.AddAlert(message)
		}
	}
}

// LogAlerter writes alerts to a structured logger
type LogAlerter struct {
	Logger *slog.Logger
}

// AddAlert logs message at warn level
func (l LogAlerter) AddAlert(message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("Alert", "message", message)
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithClock sets the clock that drives auto-dismissal
func WithClock(c clock.WithDelayedExecution) QueueOption {
	return func(q *Queue) {
		q.clock = c
	}
}

// WithDismissAfter sets the auto-dismiss delay
func WithDismissAfter(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.dismissAfter = d
		}
	}
}

// Queue holds the active alerts, newest first. Whenever the set of alerts
// changes a single timer is restarted; when it fires the oldest alert is
// dismissed, so alerts drain one every dismiss period.
type Queue struct {
	clock        clock.WithDelayedExecution
	dismissAfter time.Duration

	mu        sync.Mutex
	alerts    []string
	timer     clock.Timer
	gen       uint64
	closed    bool
	listeners []func([]string)
}

// NewQueue creates an empty alert queue
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		clock:        clock.RealClock{},
		dismissAfter: DefaultDismissAfter,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AddAlert pushes message to the front of the queue
func (q *Queue) AddAlert(message string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.alerts = append([]string{message}, q.alerts...)
	snapshot := q.rearmLocked()
	listeners := slices.Clone(q.listeners)
	q.mu.Unlock()

	notify(listeners, snapshot)
}

// Active returns the active alerts, newest first
func (q *Queue) Active() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.alerts)
}

// Subscribe registers fn to be called with the active alerts after every change
func (q *Queue) Subscribe(fn func([]string)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// Close stops the dismiss timer and drops further alerts
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.gen++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// rearmLocked restarts the dismiss timer and returns a snapshot of the alerts
func (q *Queue) rearmLocked() []string {
	q.gen++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if len(q.alerts) > 0 {
		gen := q.gen
		// The fake clock runs callbacks under its own lock, so dismissal
		// must not re-enter the clock synchronously.
		q.timer = q.clock.AfterFunc(q.dismissAfter, func() {
			go q.dismissOldest(gen)
		})
	}
	return slices.Clone(q.alerts)
}

func (q *Queue) dismissOldest(gen uint64) {
	q.mu.Lock()
	if q.closed || gen != q.gen || len(q.alerts) == 0 {
		q.mu.Unlock()
		return
	}
	q.alerts = q.alerts[:len(q.alerts)-1]
	q.timer = nil
	snapshot := q.rearmLocked()
	listeners := slices.Clone(q.listeners)
	q.mu.Unlock()

	notify(listeners, snapshot)
}

func notify(listeners []func([]string), alerts []string) {
	for _, fn := range listeners {
		fn(slices.Clone(alerts))
	}
}
