package metadata

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

// Options is what the filter selectors can offer
type Options struct {
	Shapes   []string
	Cultures []string
	Tags     []string
	Loading  bool
	Failed   bool
}

// Disabled reports whether the selectors should be disabled, which they are
// while loading and after a failed load
func (o Options) Disabled() bool {
	return o.Loading || o.Failed
}

// OptionsFrom builds selector options from loaded metadata
func OptionsFrom(md catalog.Metadata) Options {
	return Options{
		Shapes:   catalog.Values(md.Shapes),
		Cultures: catalog.Values(md.Cultures),
		Tags:     catalog.Values(md.Tags),
	}
}

func (o Options) clone() Options {
	o.Shapes = slices.Clone(o.Shapes)
	o.Cultures = slices.Clone(o.Cultures)
	o.Tags = slices.Clone(o.Tags)
	return o
}

// Derive collects the distinct shapes, cultures and tags used by artifacts,
// in first-seen order. Values are compared case-insensitively.
func Derive(artifacts []catalog.Artifact) catalog.Metadata {
	var md catalog.Metadata
	seen := map[string]map[string]bool{"shape": {}, "culture": {}, "tag": {}}
	add := func(kind string, list *[]catalog.Ref, ref catalog.Ref) {
		key := strings.ToLower(strings.TrimSpace(ref.Value))
		if key == "" || seen[kind][key] {
			return
		}
		seen[kind][key] = true
		*list = append(*list, ref)
	}
	for _, a := range artifacts {
		add("shape", &md.Shapes, a.Attributes.Shape)
		add("culture", &md.Cultures, a.Attributes.Culture)
		for _, tag := range a.Attributes.Tags {
			add("tag", &md.Tags, tag)
		}
	}
	return md.Normalize()
}

// Source loads options once in the background and serves snapshots
type Source struct {
	loader *Loader

	once sync.Once
	done chan struct{}

	mu        sync.Mutex
	opts      Options
	err       error
	listeners []func(Options)
}

// NewSource creates a source whose options report Loading until started and loaded
func NewSource(loader *Loader) *Source {
	return &Source{
		loader: loader,
		done:   make(chan struct{}),
		opts:   Options{Loading: true},
	}
}

// Start begins loading in the background. Only the first call has an effect.
// Cancelling ctx abandons the load.
func (s *Source) Start(ctx context.Context) {
	s.once.Do(func() {
		go s.run(ctx)
	})
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)

	md, err := s.loader.Load(ctx)

	s.mu.Lock()
	if err != nil {
		s.err = err
		s.opts = Options{Failed: true}
	} else {
		s.opts = OptionsFrom(md)
	}
	opts := s.opts.clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(opts.clone())
	}
}

// Options returns the current options
func (s *Source) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.clone()
}

// Err returns the load error, if the load failed
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Subscribe registers fn to be called once the load finishes
func (s *Source) Subscribe(fn func(Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Wait blocks until a started load finishes or ctx is done
func (s *Source) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
