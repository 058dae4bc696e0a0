package filtering

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/querystring"
)

// ErrInvalidValue is returned when an update value has the wrong type for its field
var ErrInvalidValue = errors.New("invalid filter value")

// ChangeListener is called with a copy of the criteria after every change.
// Listeners run one at a time and must not call Update.
type ChangeListener func(catalog.Criteria)

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the logger used by the controller
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller is the single source of truth for the filter criteria.
// It is safe for concurrent use; listeners observe changes in the order
// they were applied.
type Controller struct {
	mu        sync.Mutex
	location  Location
	criteria  catalog.Criteria
	page      int
	hydrated  bool
	listeners []ChangeListener
	logger    *slog.Logger

	// version counts applied changes, delivered the last one listeners saw
	version   uint64
	delivered uint64
	// deliverMu serializes listener calls
	deliverMu sync.Mutex
}

// NewController creates a controller bound to loc, holding the default criteria
func NewController(loc Location, opts ...ControllerOption) *Controller {
	c := &Controller{
		location: loc,
		criteria: catalog.NewCriteria(),
		page:     catalog.FirstPage,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers a listener for criteria changes
func (c *Controller) OnChange(l ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Initialize hydrates the criteria and page from the location.
// Only the first call reads the location; later calls return the current state.
// Hydration never writes back to the location.
func (c *Controller) Initialize() (catalog.Criteria, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hydrated {
		return c.criteria.Clone(), c.page
	}

	query := c.location.Query()
	if querystring.HasFilterParams(query) || query.Has(querystring.ParamPage) {
		c.criteria, c.page = querystring.Decode(query)
	}
	c.hydrated = true

	c.logger.Debug("Hydrated filter from location",
		"query", c.criteria.Query,
		"shape", c.criteria.Shape,
		"culture", c.criteria.Culture,
		"tags", c.criteria.Tags,
		"page", c.page)

	return c.criteria.Clone(), c.page
}

// Hydrated reports whether Initialize has run
func (c *Controller) Hydrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrated
}

// Criteria returns a copy of the current criteria
func (c *Controller) Criteria() catalog.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria.Clone()
}

// Page returns the page position last mirrored into the location
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Update replaces exactly one field of the criteria.
// Query, shape and culture take a string; tags take the whole []string sequence.
// Setting a field to its current value is a no-op.
func (c *Controller) Update(field catalog.Field, value any) error {
	c.mu.Lock()

	next, err := c.apply(field, value)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if next.Equal(c.criteria) {
		c.mu.Unlock()
		return nil
	}

	c.criteria = next
	// A new filter invalidates the previous page position
	c.page = catalog.FirstPage
	c.version++
	c.syncToURLLocked()
	c.mu.Unlock()

	c.logger.Debug("Filter updated", "field", field, "value", value)
	c.deliver()
	return nil
}

// deliver hands the latest criteria to the listeners. An Update racing with
// another may find its change already delivered, or deliver the other's
// newer criteria; older criteria never follow newer ones.
func (c *Controller) deliver() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.delivered == c.version {
		c.mu.Unlock()
		return
	}
	c.delivered = c.version
	snapshot := c.criteria.Clone()
	listeners := append([]ChangeListener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snapshot.Clone())
	}
}

// SyncPage records the page position and mirrors it into the location
func (c *Controller) SyncPage(page int) {
	if page < catalog.FirstPage {
		page = catalog.FirstPage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page == page {
		return
	}
	c.page = page
	c.syncToURLLocked()
}

func (c *Controller) apply(field catalog.Field, value any) (catalog.Criteria, error) {
	switch field {
	case catalog.FieldTags:
		tags, ok := value.([]string)
		if !ok && value != nil {
			return c.criteria, fmt.Errorf("%w: %s expects []string, got %T", ErrInvalidValue, field, value)
		}
		return c.criteria.WithTags(tags), nil
	case catalog.FieldQuery, catalog.FieldShape, catalog.FieldCulture:
		s, ok := value.(string)
		if !ok {
			return c.criteria, fmt.Errorf("%w: %s expects string, got %T", ErrInvalidValue, field, value)
		}
		return c.criteria.WithString(field, s)
	default:
		return c.criteria, fmt.Errorf("%w: %q", catalog.ErrUnknownField, field)
	}
}

// syncToURLLocked mirrors the criteria and page into the location.
// Writes are suppressed until hydration so a bookmarked URL survives mount.
func (c *Controller) syncToURLLocked() {
	if !c.hydrated {
		return
	}
	current := c.location.Query()
	next := querystring.Merge(current, c.criteria, c.page)
	if next.Encode() == current.Encode() {
		return
	}
	c.location.ReplaceQuery(next)
}
