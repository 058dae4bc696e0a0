// Package view assembles one catalog listing: the filter controller bound to
// a location, the paged fetcher for the items endpoint, the selector options
// and the alerts shown to the user.
//
// The wiring is
//
//	Controller.Update -> Fetcher.OnFilterChanged   (page back to 1, debounce)
//	Fetcher page change -> Controller.SyncPage     (page mirrored to the URL)
//
// so the location, the criteria and the fetched page stay consistent without
// either side writing back the change that triggered it.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/filtering"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/metadata"
	"github.com/stacklok/catalog-browser/internal/paging"
)

var (
	// ErrUnmounted is returned by operations on an unmounted view
	ErrUnmounted = errors.New("view unmounted")

	// ErrNotMounted is returned by operations that need Mount first
	ErrNotMounted = errors.New("view not mounted")
)

// Config describes the collaborators of a view
type Config struct {
	// Location holds the query string the filter is mirrored into
	Location filtering.Location
	// ItemsEndpoint is the absolute URL of the paginated list
	ItemsEndpoint string
	// MetadataEndpoint is the absolute URL of the selector metadata; empty skips loading it
	MetadataEndpoint string

	Client httpclient.Client
	Tokens auth.TokenSource
	// Alerts receives every alert in addition to the view's own queue
	Alerts alert.Alerter

	FetchOptions  []paging.Option
	LoaderOptions []metadata.LoaderOption
	QueueOptions  []alert.QueueOption
	Logger        *slog.Logger
}

// View is one mounted catalog listing of T
type View[T any] struct {
	location   filtering.Location
	controller *filtering.Controller
	fetcher    *paging.Fetcher[T]
	options    *metadata.Source
	alerts     *alert.Queue
	logger     *slog.Logger

	mu        sync.Mutex
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
}

// New wires a view from cfg. Nothing is fetched until Mount.
func New[T any](cfg Config) (*View[T], error) {
	if cfg.Location == nil {
		return nil, errors.New("location is required")
	}
	if cfg.Client == nil {
		cfg.Client = httpclient.NewDefaultClient(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	queue := alert.NewQueue(cfg.QueueOptions...)
	alerts := alert.Multi{queue}
	if cfg.Alerts != nil {
		alerts = append(alerts, cfg.Alerts)
	}

	fetchOpts := append([]paging.Option{paging.WithLogger(logger)}, cfg.FetchOptions...)
	fetcher, err := paging.New[T](cfg.ItemsEndpoint, cfg.Client, cfg.Tokens, alerts, fetchOpts...)
	if err != nil {
		queue.Close()
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	v := &View[T]{
		location:   cfg.Location,
		controller: filtering.NewController(cfg.Location, filtering.WithLogger(logger)),
		fetcher:    fetcher,
		alerts:     queue,
		logger:     logger,
	}
	if cfg.MetadataEndpoint != "" {
		loaderOpts := append([]metadata.LoaderOption{metadata.WithLogger(logger)}, cfg.LoaderOptions...)
		v.options = metadata.NewSource(metadata.NewLoader(cfg.MetadataEndpoint, cfg.Client, cfg.Tokens, alerts, loaderOpts...))
	}

	v.controller.OnChange(fetcher.OnFilterChanged)
	fetcher.OnPageChange(v.controller.SyncPage)
	return v, nil
}

// Mount hydrates the filter from the location, schedules the first fetch and
// starts loading the selector options. Mounting twice does nothing.
func (v *View[T]) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return ErrUnmounted
	}
	if v.mounted {
		return nil
	}

	criteria, page := v.controller.Initialize()
	v.fetcher.Hydrate(criteria, page)

	ctx, v.cancel = context.WithCancel(ctx)
	if v.options != nil {
		v.options.Start(ctx)
	}
	v.mounted = true
	return nil
}

func (v *View[T]) checkMounted() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case v.unmounted:
		return ErrUnmounted
	case !v.mounted:
		return ErrNotMounted
	default:
		return nil
	}
}

// Update replaces one filter field; see filtering.Controller.Update
func (v *View[T]) Update(field catalog.Field, value any) error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.controller.Update(field, value)
}

// AddTag adds tag to the tag filter
func (v *View[T]) AddTag(tag string) error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.controller.Update(catalog.FieldTags, filtering.AddTag(v.controller.Criteria().Tags, tag))
}

// RemoveTag removes tag from the tag filter
func (v *View[T]) RemoveTag(tag string) error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.controller.Update(catalog.FieldTags, filtering.RemoveTag(v.controller.Criteria().Tags, tag))
}

// SetPage moves to page; see paging.Fetcher.OnPageChanged
func (v *View[T]) SetPage(page int) error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.fetcher.OnPageChanged(page)
}

// NextPage moves one page forward when there is one
func (v *View[T]) NextPage() error {
	p := v.fetcher.State().Pagination
	if !p.HasNext() {
		return nil
	}
	return v.SetPage(p.CurrentPage + 1)
}

// PreviousPage moves one page back when there is one
func (v *View[T]) PreviousPage() error {
	p := v.fetcher.State().Pagination
	if !p.HasPrevious() {
		return nil
	}
	return v.SetPage(p.CurrentPage - 1)
}

// Refresh re-requests the current page
func (v *View[T]) Refresh() error {
	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.fetcher.Refresh()
}

// State returns the current items, pagination and request phase
func (v *View[T]) State() paging.State[T] {
	return v.fetcher.State()
}

// Criteria returns the current filter criteria
func (v *View[T]) Criteria() catalog.Criteria {
	return v.controller.Criteria()
}

// Options returns the selector options. Without a metadata endpoint the
// selectors stay enabled with nothing to offer.
func (v *View[T]) Options() metadata.Options {
	if v.options == nil {
		return metadata.Options{}
	}
	return v.options.Options()
}

// Alerts returns the alerts currently shown, newest first
func (v *View[T]) Alerts() []string {
	return v.alerts.Active()
}

// ShareableQuery returns the encoded query string of the location
func (v *View[T]) ShareableQuery() string {
	return v.location.Query().Encode()
}

// Subscribe registers fn to be called after any change of items, options or alerts
func (v *View[T]) Subscribe(fn func()) {
	v.fetcher.Subscribe(func(paging.State[T]) { fn() })
	v.alerts.Subscribe(func([]string) { fn() })
	if v.options != nil {
		v.options.Subscribe(func(metadata.Options) { fn() })
	}
}

// WaitIdle blocks until the fetcher is idle and the options have loaded
func (v *View[T]) WaitIdle(ctx context.Context) error {
	v.mu.Lock()
	mounted, unmounted := v.mounted, v.unmounted
	v.mu.Unlock()
	if !mounted && !unmounted {
		return ErrNotMounted
	}
	g, gctx := errgroup.WithContext(ctx)
	if v.options != nil && mounted {
		g.Go(func() error { return v.options.Wait(gctx) })
	}
	g.Go(func() error { return v.fetcher.WaitIdle(gctx) })
	return g.Wait()
}

// Unmount cancels the pending fetch and any request in flight, stops the
// options load and closes the alert queue. Later updates fail with ErrUnmounted.
func (v *View[T]) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted {
		return
	}
	v.unmounted = true
	v.fetcher.Close()
	v.alerts.Close()
	if v.cancel != nil {
		v.cancel()
	}
	v.logger.Debug("View unmounted")
}
