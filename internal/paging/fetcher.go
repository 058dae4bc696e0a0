package paging

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/otel"
	"github.com/stacklok/catalog-browser/internal/telemetry"
)

var (
	// ErrPageOutOfRange is returned for a page outside [1, TotalPages]
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrClosed is returned by operations on a closed Fetcher
	ErrClosed = errors.New("fetcher closed")
)

// Fetcher retrieves pages of T from one paginated endpoint
type Fetcher[T any] struct {
	endpoint *url.URL
	client   httpclient.Client
	tokens   auth.TokenSource
	alerts   alert.Alerter
	opts     options

	// ctx is the parent of every request and is cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	criteria   catalog.Criteria
	pagination catalog.Pagination
	items      []T
	phase      Phase
	loading    bool
	lastErr    error
	closed     bool

	// position changes whenever the criteria or the page the user wants
	// change; a response for an older position is never applied.
	position uint64
	// countCurrent is false while TotalPages describes a result set the
	// current criteria no longer select
	countCurrent bool

	timer    clock.Timer
	armed    bool
	armGen   uint64
	seq      uint64
	inFlight int
	idle     chan struct{}
	isIdle   bool

	subscribers   []func(State[T])
	pageListeners []func(int)
}

// New creates a Fetcher for endpoint, which must be an absolute URL.
// A nil tokens source sends anonymous requests; a nil alerter logs failures.
func New[T any](
	endpoint string,
	client httpclient.Client,
	tokens auth.TokenSource,
	alerts alert.Alerter,
	opts ...Option,
) (*Fetcher[T], error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("http client is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if tokens == nil {
		tokens = auth.Anonymous
	}
	if alerts == nil {
		alerts = alert.LogAlerter{Logger: o.logger}
	}

	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Fetcher[T]{
		endpoint:   u,
		client:     client,
		tokens:     tokens,
		alerts:     alerts,
		opts:       o,
		ctx:        ctx,
		cancel:     cancel,
		criteria:   catalog.NewCriteria(),
		pagination: catalog.NewPagination(),
		items:      []T{},
		phase:      PhaseIdle,
		loading:    true,
		idle:       idle,
		isIdle:     true,
	}, nil
}

// Endpoint returns the endpoint pages are fetched from
func (f *Fetcher[T]) Endpoint() string {
	return f.endpoint.String()
}

// Hydrate seeds criteria and page, typically decoded from a bookmarked URL,
// and schedules the initial fetch. Unlike a filter change it keeps the page.
func (f *Fetcher[T]) Hydrate(c catalog.Criteria, page int) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.criteria = c.Normalize().Clone()
	f.pagination.CurrentPage = catalog.NewPagination().Clamp(page)
	f.moveLocked()
	f.countCurrent = false
	f.armLocked()
	state := f.snapshotLocked()
	subscribers := slices.Clone(f.subscribers)
	f.mu.Unlock()

	f.opts.logger.Debug("Hydrated fetcher", "endpoint", f.endpoint.Path, "page", state.Pagination.CurrentPage)
	notify(subscribers, state)
}

// OnFilterChanged adopts new criteria, moves back to the first page and
// restarts the debounce period.
func (f *Fetcher[T]) OnFilterChanged(c catalog.Criteria) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.criteria = c.Normalize().Clone()
	moved := f.setPageLocked(catalog.FirstPage)
	f.moveLocked()
	f.countCurrent = false
	f.armLocked()
	state := f.snapshotLocked()
	subscribers := slices.Clone(f.subscribers)
	pageListeners := slices.Clone(f.pageListeners)
	f.mu.Unlock()

	if moved {
		notifyPage(pageListeners, catalog.FirstPage)
	}
	notify(subscribers, state)
}

// OnPageChanged moves to page and restarts the debounce period. The page must
// be at least 1 and, once the page count of the current criteria is known,
// at most TotalPages.
// Asking for the current page again does nothing.
func (f *Fetcher[T]) OnPageChanged(page int) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if !f.acceptsPageLocked(page) {
		total := f.pagination.TotalPages
		f.mu.Unlock()
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, total)
	}
	if page == f.pagination.CurrentPage {
		f.mu.Unlock()
		return nil
	}
	f.setPageLocked(page)
	f.moveLocked()
	f.armLocked()
	state := f.snapshotLocked()
	subscribers := slices.Clone(f.subscribers)
	pageListeners := slices.Clone(f.pageListeners)
	f.mu.Unlock()

	notifyPage(pageListeners, page)
	notify(subscribers, state)
	return nil
}

// Refresh re-requests the current page with the current criteria
func (f *Fetcher[T]) Refresh() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.armLocked()
	return nil
}

// State returns a snapshot of the fetcher
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Loading reports whether the first request has yet to settle
func (f *Fetcher[T]) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Subscribe registers fn to receive a snapshot after every state change.
// Callbacks run outside the fetcher's lock, possibly on request goroutines.
func (f *Fetcher[T]) Subscribe(fn func(State[T])) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
}

// OnPageChange registers fn to be called whenever the current page changes,
// whatever the cause. It is the hook for mirroring the page into the URL.
func (f *Fetcher[T]) OnPageChange(fn func(page int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageListeners = append(f.pageListeners, fn)
}

// WaitIdle blocks until no debounce timer is armed and no request is in
// flight, or ctx is done.
func (f *Fetcher[T]) WaitIdle(ctx context.Context) error {
	for {
		f.mu.Lock()
		idle := f.idle
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}

		// A response may have re-armed the timer (page reconciliation)
		// between the channel closing and this goroutine waking up.
		f.mu.Lock()
		done := f.isIdle
		f.mu.Unlock()
		if done {
			return nil
		}
	}
}

// Close stops the debounce timer and cancels requests in flight. Responses
// arriving afterwards are dropped. Calling Close again does nothing.
func (f *Fetcher[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.stopTimerLocked()
	f.cancel()
	f.updateIdleLocked()
}

func (f *Fetcher[T]) acceptsPageLocked(page int) bool {
	if f.countCurrent {
		return f.pagination.Contains(page)
	}
	return page >= catalog.FirstPage
}

// moveLocked marks every request issued so far as answering an old position
func (f *Fetcher[T]) moveLocked() {
	f.position++
}

func (f *Fetcher[T]) setPageLocked(page int) bool {
	if f.pagination.CurrentPage == page {
		return false
	}
	f.pagination.CurrentPage = page
	return true
}

// armLocked (re)starts the debounce period
func (f *Fetcher[T]) armLocked() {
	f.stopTimerLocked()
	f.armGen++
	gen := f.armGen
	f.armed = true
	f.phase = PhaseDebouncing
	// A fake clock invokes the callback while holding its own lock, so the
	// callback only hands off to a goroutine.
	f.timer = f.opts.clock.AfterFunc(f.opts.debounce, func() {
		go f.fire(gen)
	})
	f.updateIdleLocked()
}

func (f *Fetcher[T]) stopTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.armed = false
}

// updateIdleLocked keeps the idle channel closed exactly while the fetcher
// has nothing armed and nothing in flight.
func (f *Fetcher[T]) updateIdleLocked() {
	busy := f.armed || f.inFlight > 0
	switch {
	case busy && f.isIdle:
		f.idle = make(chan struct{})
		f.isIdle = false
	case !busy && !f.isIdle:
		close(f.idle)
		f.isIdle = true
	}
}

// fire runs when the debounce period of arming gen has elapsed
func (f *Fetcher[T]) fire(gen uint64) {
	f.mu.Lock()
	if f.closed || gen != f.armGen || !f.armed {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	f.armed = false
	f.seq++
	seq := f.seq
	position := f.position
	criteria := f.criteria.Clone()
	page := f.pagination.CurrentPage
	f.inFlight++
	f.phase = PhaseInFlight
	f.updateIdleLocked()
	state := f.snapshotLocked()
	subscribers := slices.Clone(f.subscribers)
	f.mu.Unlock()

	notify(subscribers, state)
	f.fetchPage(seq, position, criteria, page)
}

func (f *Fetcher[T]) fetchPage(seq, position uint64, criteria catalog.Criteria, page int) {
	ctx, cancel := context.WithTimeout(f.ctx, f.opts.requestTimeout)
	defer cancel()

	ctx, span := otel.StartSpan(ctx, f.opts.tracer, "paging.fetchPage",
		trace.WithAttributes(otel.CriteriaAttributes(criteria, page)...),
		trace.WithAttributes(
			otel.AttrEndpoint.String(f.endpoint.Path),
			otel.AttrSequence.Int64(int64(seq)),
		),
	)
	defer span.End()

	target := requestURL(f.endpoint, criteria, page)
	start := f.opts.clock.Now()

	f.opts.logger.Debug("Fetching page", "url", target, "seq", seq)
	result, err := httpclient.GetJSON[catalog.Page[T]](ctx, f.client, target,
		httpclient.WithBearerToken(f.tokens.CurrentToken()))
	elapsed := f.opts.clock.Since(start)

	if err != nil {
		otel.RecordError(span, err)
	} else {
		span.SetAttributes(
			otel.AttrResultCount.Int(len(result.Data)),
			otel.AttrTotalPages.Int(result.TotalPages),
		)
	}

	outcome := f.settle(seq, position, result, err)
	f.opts.metrics.RecordFetch(ctx, f.endpoint.Path, outcome, elapsed)
	f.finish()
}

// finish retires one in-flight request. It runs after listeners and
// metrics have seen the outcome, so WaitIdle observes all of it.
func (f *Fetcher[T]) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.updateIdleLocked()
}

// settle applies the outcome of request seq, issued for position. A
// response is stale when a newer request was issued or when the criteria or
// page changed after it was issued, even if the newer request is still
// waiting for its debounce period.
func (f *Fetcher[T]) settle(seq, position uint64, result catalog.Page[T], err error) telemetry.Outcome {
	f.mu.Lock()
	if f.closed || seq != f.seq || position != f.position {
		latest, closed, moved := f.seq, f.closed, position != f.position
		f.mu.Unlock()
		f.opts.logger.Debug("Discarding stale response",
			"seq", seq, "latest", latest, "closed", closed, "position_changed", moved)
		return telemetry.OutcomeStale
	}

	f.loading = false

	if err != nil {
		f.lastErr = err
		f.phase = PhaseFailed
		state := f.snapshotLocked()
		subscribers := slices.Clone(f.subscribers)
		f.mu.Unlock()

		f.opts.logger.Warn("Failed to fetch page", "endpoint", f.endpoint.Path, "error", err)
		f.alerts.AddAlert(alertMessage(err))
		notify(subscribers, state)
		return telemetry.OutcomeFailure
	}

	requested := f.pagination.CurrentPage
	f.lastErr = nil
	f.phase = PhaseSettled
	f.items = result.Data
	if f.items == nil {
		f.items = []T{}
	}
	f.pagination = result.Pagination()
	f.countCurrent = true
	if f.pagination.CurrentPage < catalog.FirstPage {
		f.pagination.CurrentPage = catalog.FirstPage
	}

	// The server may report a position past the end when the result set
	// shrank; clamp and fetch the last page instead.
	if f.pagination.Known() && f.pagination.CurrentPage > f.pagination.TotalPages {
		f.opts.logger.Debug("Reconciling page past the end",
			"page", f.pagination.CurrentPage, "total_pages", f.pagination.TotalPages)
		f.pagination.CurrentPage = f.pagination.TotalPages
		f.moveLocked()
		f.armLocked()
	}

	current := f.pagination.CurrentPage
	state := f.snapshotLocked()
	subscribers := slices.Clone(f.subscribers)
	pageListeners := slices.Clone(f.pageListeners)
	f.mu.Unlock()

	if current != requested {
		notifyPage(pageListeners, current)
	}
	notify(subscribers, state)
	return telemetry.OutcomeSuccess
}

func (f *Fetcher[T]) snapshotLocked() State[T] {
	return State[T]{
		Criteria:   f.criteria,
		Pagination: f.pagination,
		Items:      f.items,
		Phase:      f.phase,
		Loading:    f.loading,
		LastError:  f.lastErr,
	}.clone()
}

func notify[T any](subscribers []func(State[T]), state State[T]) {
	for _, fn := range subscribers {
		fn(state.clone())
	}
}

func notifyPage(listeners []func(int), page int) {
	for _, fn := range listeners {
		fn(page)
	}
}
