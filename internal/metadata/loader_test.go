package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	alertmocks "github.com/stacklok/catalog-browser/internal/alert/mocks"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	clientmocks "github.com/stacklok/catalog-browser/internal/httpclient/mocks"
)

const (
	testEndpoint = "http://catalog.test/api/catalog/metadata/"
	metadataBody = `{"data": {
		"shapes": [{"id": 1, "value": "Vessel"}, {"id": 2, "value": "Figurine"}],
		"cultures": [{"id": 1, "value": "Inca"}],
		"tags": [{"id": 4, "value": "Stone"}]
	}}`
)

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	network := errors.New("failed to execute request: connection refused")
	unavailable := httpclient.NewHTTPError(http.StatusServiceUnavailable, testEndpoint, "503 Service Unavailable")
	notFound := httpclient.NewHTTPErrorWithBody(http.StatusNotFound, testEndpoint, "404 Not Found", []byte(`{"detail":"Not found."}`))

	type reply struct {
		body string
		err  error
	}

	tests := []struct {
		name          string
		replies       []reply
		expectedCalls int
		expectedAlert string
		expectError   bool
	}{
		{
			name:          "first attempt succeeds",
			replies:       []reply{{body: metadataBody}},
			expectedCalls: 1,
		},
		{
			name:          "transient failures are retried",
			replies:       []reply{{err: unavailable}, {err: network}, {body: metadataBody}},
			expectedCalls: 3,
		},
		{
			name:          "client errors are not retried",
			replies:       []reply{{err: notFound}},
			expectedCalls: 1,
			expectedAlert: "Not found.",
			expectError:   true,
		},
		{
			name:          "malformed body is not retried",
			replies:       []reply{{body: `{"data": [`}},
			expectedCalls: 1,
			expectedAlert: "failed to decode response: unexpected end of JSON input",
			expectError:   true,
		},
		{
			name:          "gives up after max tries",
			replies:       []reply{{err: unavailable}, {err: unavailable}, {err: unavailable}},
			expectedCalls: 3,
			expectedAlert: "HTTP 503 Service Unavailable",
			expectError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := clientmocks.NewMockClient(ctrl)
			alerts := alertmocks.NewMockAlerter(ctrl)

			calls := 0
			client.EXPECT().
				Get(gomock.Any(), testEndpoint, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ string, _ ...httpclient.RequestOption) ([]byte, error) {
					r := tt.replies[calls]
					calls++
					if r.err != nil {
						return nil, r.err
					}
					return []byte(r.body), nil
				}).
				Times(tt.expectedCalls)
			if tt.expectedAlert != "" {
				alerts.EXPECT().AddAlert(tt.expectedAlert).Times(1)
			}

			loader := NewLoader(testEndpoint, client, auth.Anonymous, alerts, WithBackOff(zeroBackOff))
			md, err := loader.Load(context.Background())

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to load metadata")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"Vessel", "Figurine"}, catalog.Values(md.Shapes))
			assert.Equal(t, []string{"Inca"}, catalog.Values(md.Cultures))
			assert.Equal(t, []string{"Stone"}, catalog.Values(md.Tags))
		})
	}
}

func TestLoader_WithMaxTries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := clientmocks.NewMockClient(ctrl)
	alerts := alertmocks.NewMockAlerter(ctrl)

	client.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection reset")).Times(5)
	alerts.EXPECT().AddAlert("connection reset")

	loader := NewLoader(testEndpoint, client, nil, alerts, WithBackOff(zeroBackOff), WithMaxTries(5))
	_, err := loader.Load(context.Background())
	require.Error(t, err)
}

func TestLoader_CancelledDoesNotAlert(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := clientmocks.NewMockClient(ctrl)
	alerts := alertmocks.NewMockAlerter(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	client.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ ...httpclient.RequestOption) ([]byte, error) {
			cancel()
			return nil, ctx.Err()
		})

	loader := NewLoader(testEndpoint, client, nil, alerts, WithBackOff(zeroBackOff))
	_, err := loader.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_SendsBearerToken(t *testing.T) {
	t.Parallel()

	auths := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths <- r.Header.Get("Authorization")
		_, _ = w.Write([]byte(metadataBody))
	}))
	defer server.Close()

	loader := NewLoader(server.URL, httpclient.NewDefaultClient(5*time.Second), auth.StaticToken("tok"), nil)
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", <-auths)
}

func TestLoader_EmptyListsAreNeverNil(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := clientmocks.NewMockClient(ctrl)
	client.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(`{"data": {}}`), nil)

	md, err := NewLoader(testEndpoint, client, nil, alertmocks.NewMockAlerter(ctrl)).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, md.Shapes)
	assert.NotNil(t, md.Cultures)
	assert.NotNil(t, md.Tags)
}
