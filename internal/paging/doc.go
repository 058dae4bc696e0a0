// Package paging implements the debounced, paginated retrieval of catalog
// results.
//
// A Fetcher owns the pagination position for one paginated endpoint and the
// items of the page currently shown. Every filter or page change re-arms a
// single debounce timer; only when the input has been quiet for the debounce
// period is a request issued. Each request carries a sequence number and a
// response is applied only if it answers the most recently issued request, so
// a slow response for an old filter can never overwrite a newer result.
//
// The lifecycle of one fetch is
//
//	Idle -> Debouncing -> InFlight -> Settled | Failed
//
// where re-arming during Debouncing restarts the timer, and any change made
// while a request is in flight starts a new debounce period whose request
// supersedes the one in flight.
//
// Example usage:
//
//	f, err := paging.New[catalog.Artifact](endpoint, httpclient.NewDefaultClient(0),
//		tokens, alerts, paging.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	f.Hydrate(criteria, page)
//	if err := f.WaitIdle(ctx); err != nil {
//		return err
//	}
//	state := f.State()
package paging
