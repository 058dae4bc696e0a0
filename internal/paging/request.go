package paging

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/querystring"
)

// RequestURL returns the page request for criteria against endpoint.
// Only non-empty filter fields are sent; the page is always sent.
// Parameters already present on endpoint are kept unless the request sets them.
func RequestURL(endpoint string, c catalog.Criteria, page int) (string, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	return requestURL(u, c, page), nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint %q: %w", endpoint, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", endpoint)
	}
	return u, nil
}

func requestURL(base *url.URL, c catalog.Criteria, page int) string {
	if page < catalog.FirstPage {
		page = catalog.FirstPage
	}

	q := base.Query()
	for key, values := range querystring.Encode(c, catalog.FirstPage) {
		q[key] = values
	}
	q.Set(querystring.ParamPage, strconv.Itoa(page))

	u := *base
	u.RawQuery = q.Encode()
	return u.String()
}

// alertMessage turns a request failure into text for the user
func alertMessage(err error) string {
	if httpErr, ok := httpclient.AsHTTPError(err); ok {
		return httpErr.UserMessage()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The catalog did not respond in time"
	default:
		return err.Error()
	}
}
