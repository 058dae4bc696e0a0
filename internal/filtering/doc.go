// Package filtering owns the artifact filter criteria and keeps them in sync
// with the address-bar query string.
//
// # Architecture
//
// The package consists of three parts:
//
//   - Controller: the single source of truth for catalog.Criteria. All
//     changes go through Update, which mirrors the criteria into the
//     Location and notifies listeners one at a time, in the order the
//     changes were applied.
//   - Location: the address bar abstraction. ReplaceQuery swaps the current
//     history entry instead of pushing a new one, so stepping back leaves the
//     filtered view rather than replaying every keystroke.
//   - Tag helpers: AddTag, RemoveTag and DedupeTags compute the whole tag
//     sequence an Update takes from a single added or removed tag.
//
// # Hydration
//
// Initialize reads the criteria and page from the Location exactly once.
// Until it has run, the controller never writes to the Location, so a
// bookmarked URL is not overwritten by the empty initial state.
//
// # Usage Example
//
//	loc := filtering.NewMemoryLocation(filtering.ParseLocation("?shape=Vessel&page=2"))
//	ctrl := filtering.NewController(loc)
//	ctrl.OnChange(func(c catalog.Criteria) { fetcher.OnFilterChanged(c) })
//	criteria, page := ctrl.Initialize()
//	_ = ctrl.Update(catalog.FieldQuery, "jar")
package filtering
