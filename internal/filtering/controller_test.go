package filtering

import (
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

type recordingListener struct {
	mu    sync.Mutex
	calls []catalog.Criteria
}

func (r *recordingListener) listen(c catalog.Criteria) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingListener) snapshot() []catalog.Criteria {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]catalog.Criteria(nil), r.calls...)
}

func TestController_InitializeFromBookmarkedURL(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("?shape=Vessel&page=2"))
	ctrl := NewController(loc)

	criteria, page := ctrl.Initialize()

	assert.Equal(t, "Vessel", criteria.Shape)
	assert.Equal(t, 2, page)
	assert.True(t, ctrl.Hydrated())
	assert.Zero(t, loc.Replacements(), "hydration must not write back to the location")
	assert.Equal(t, "page=2&shape=Vessel", loc.RawQuery())
}

func TestController_InitializeWithoutParams(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(url.Values{"utm_source": {"mail"}})
	ctrl := NewController(loc)

	criteria, page := ctrl.Initialize()

	assert.True(t, criteria.IsZero())
	assert.NotNil(t, criteria.Tags)
	assert.Equal(t, 1, page)
	assert.Zero(t, loc.Replacements())
}

func TestController_InitializeRunsOnce(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("culture=Inca"))
	ctrl := NewController(loc)
	ctrl.Initialize()

	// The location changes behind the controller's back (for example back/forward navigation)
	loc.ReplaceQuery(ParseLocation("culture=Diaguita"))

	criteria, _ := ctrl.Initialize()
	assert.Equal(t, "Inca", criteria.Culture, "hydration happens at most once")
}

func TestController_UpdateBeforeHydrationDoesNotWriteURL(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("shape=Vessel"))
	ctrl := NewController(loc)

	require.NoError(t, ctrl.Update(catalog.FieldQuery, "jar"))

	assert.Zero(t, loc.Replacements())
	assert.Equal(t, "shape=Vessel", loc.RawQuery(), "bookmarked URL must survive until hydration")
}

func TestController_UpdateSyncsURLAndNotifies(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("shape=Vessel&page=3&ref=home"))
	ctrl := NewController(loc)
	listener := &recordingListener{}
	ctrl.OnChange(listener.listen)
	ctrl.Initialize()

	require.NoError(t, ctrl.Update(catalog.FieldTags, []string{"Vessel", "Stone"}))

	calls := listener.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"Vessel", "Stone"}, calls[0].Tags)
	assert.Equal(t, "Vessel", calls[0].Shape)

	q := loc.Query()
	assert.Equal(t, "Vessel,Stone", q.Get("tags"))
	assert.Equal(t, "Vessel", q.Get("shape"))
	assert.False(t, q.Has("page"), "a filter change resets the page to the first one")
	assert.Equal(t, "home", q.Get("ref"), "foreign parameters are preserved")
	assert.Equal(t, 1, ctrl.Page())
	assert.Equal(t, 1, loc.Replacements(), "filter changes replace the history entry")
}

func TestController_UpdateClearsField(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("shape=Vessel&culture=Inca"))
	ctrl := NewController(loc)
	ctrl.Initialize()

	require.NoError(t, ctrl.Update(catalog.FieldShape, ""))

	assert.Equal(t, "culture=Inca", loc.RawQuery())
}

func TestController_UpdateSameValueIsNoop(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("shape=Vessel"))
	ctrl := NewController(loc)
	listener := &recordingListener{}
	ctrl.OnChange(listener.listen)
	ctrl.Initialize()

	require.NoError(t, ctrl.Update(catalog.FieldShape, "Vessel"))

	assert.Empty(t, listener.snapshot())
	assert.Zero(t, loc.Replacements())
}

func TestController_UpdateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		field   catalog.Field
		value   any
		wantErr error
	}{
		{name: "query with list", field: catalog.FieldQuery, value: []string{"a"}, wantErr: ErrInvalidValue},
		{name: "tags with string", field: catalog.FieldTags, value: "a,b", wantErr: ErrInvalidValue},
		{name: "shape with int", field: catalog.FieldShape, value: 3, wantErr: ErrInvalidValue},
		{name: "unknown field", field: catalog.Field("page"), value: "2", wantErr: catalog.ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := NewController(NewMemoryLocation(nil))
			ctrl.Initialize()

			err := ctrl.Update(tt.field, tt.value)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, ctrl.Criteria().IsZero())
		})
	}
}

func TestController_UpdateNilTagsClears(t *testing.T) {
	t.Parallel()

	ctrl := NewController(NewMemoryLocation(ParseLocation("tags=a,b")))
	ctrl.Initialize()

	require.NoError(t, ctrl.Update(catalog.FieldTags, nil))

	assert.Equal(t, []string{}, ctrl.Criteria().Tags)
}

func TestController_SyncPage(t *testing.T) {
	t.Parallel()

	loc := NewMemoryLocation(ParseLocation("culture=Inca"))
	ctrl := NewController(loc)

	ctrl.SyncPage(4)
	assert.Zero(t, loc.Replacements(), "page writes are suppressed before hydration too")

	ctrl.Initialize()
	ctrl.SyncPage(3)
	assert.Equal(t, "culture=Inca&page=3", loc.RawQuery())

	ctrl.SyncPage(3)
	assert.Equal(t, 1, loc.Replacements(), "unchanged page does not rewrite the URL")

	ctrl.SyncPage(0)
	assert.Equal(t, "culture=Inca", loc.RawQuery())
}

func TestController_CriteriaIsACopy(t *testing.T) {
	t.Parallel()

	ctrl := NewController(NewMemoryLocation(ParseLocation("tags=Stone")))
	ctrl.Initialize()

	c := ctrl.Criteria()
	c.Tags[0] = "mutated"

	assert.Equal(t, []string{"Stone"}, ctrl.Criteria().Tags)
}

func TestController_ConcurrentUpdatesDeliverInOrder(t *testing.T) {
	t.Parallel()

	ctrl := NewController(NewMemoryLocation(nil))
	ctrl.Initialize()

	var active atomic.Int32
	var overlapped atomic.Bool
	listener := &recordingListener{}
	ctrl.OnChange(func(c catalog.Criteria) {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		defer active.Add(-1)
		listener.listen(c)
	})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ctrl.Update(catalog.FieldQuery, strconv.Itoa(i)))
		}()
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "listeners are never called concurrently")
	calls := listener.snapshot()
	require.NotEmpty(t, calls)
	assert.Equal(t, ctrl.Criteria(), calls[len(calls)-1], "the last delivery is the criteria that were applied last")
	assert.LessOrEqual(t, len(calls), 50)
}
