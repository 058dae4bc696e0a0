package catalogtest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

func get(t *testing.T, rawURL string, header http.Header) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func getPage(t *testing.T, s *Server, rawQuery string) catalog.Page[catalog.Artifact] {
	t.Helper()
	status, body := get(t, s.ArtifactsURL()+"?"+rawQuery, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var page catalog.Page[catalog.Artifact]
	require.NoError(t, json.Unmarshal(body, &page))
	return page
}

func ids(items []catalog.Artifact) []int {
	out := make([]int, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestServer_ListArtifacts(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts())
	t.Cleanup(s.Close)

	tests := []struct {
		name          string
		query         string
		expectedIDs   []int
		expectedTotal int
		expectedPages int
	}{
		{name: "first page", query: "", expectedIDs: []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, expectedTotal: 20, expectedPages: 3},
		{name: "last page", query: "page=3", expectedIDs: []int{19, 20}, expectedTotal: 20, expectedPages: 3},
		{name: "query matches description case-insensitively", query: "query=JAR", expectedIDs: []int{2, 7, 19}, expectedTotal: 3, expectedPages: 1},
		{name: "query matches id", query: "query=15", expectedIDs: []int{15}, expectedTotal: 1, expectedPages: 1},
		{name: "shape exact", query: "shape=mortar", expectedIDs: []int{4, 13}, expectedTotal: 2, expectedPages: 1},
		{name: "shape and culture", query: "shape=Vessel&culture=Inca", expectedIDs: []int{1, 5, 12}, expectedTotal: 3, expectedPages: 1},
		{name: "every tag must match", query: "tags=Stone,ritual", expectedIDs: []int{11, 14}, expectedTotal: 2, expectedPages: 1},
		{name: "tag segments are trimmed", query: "tags=Metal,%20Funerary", expectedIDs: []int{9, 18}, expectedTotal: 2, expectedPages: 1},
		{name: "no match has an empty first page", query: "query=nothing", expectedIDs: []int{}, expectedTotal: 0, expectedPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := getPage(t, s, tt.query)
			assert.Equal(t, tt.expectedIDs, ids(page.Data))
			assert.Equal(t, tt.expectedTotal, page.Total)
			assert.Equal(t, tt.expectedPages, page.TotalPages)
			assert.Equal(t, DefaultPageSize, page.PerPage)
		})
	}
}

func TestServer_InvalidPage(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts())
	defer s.Close()

	for _, q := range []string{"page=4", "page=0", "page=abc", "query=nothing&page=2"} {
		status, body := get(t, s.ArtifactsURL()+"?"+q, nil)
		assert.Equal(t, http.StatusNotFound, status, q)
		assert.JSONEq(t, `{"detail": "Invalid page."}`, string(body), q)
	}
}

func TestServer_Metadata(t *testing.T) {
	t.Parallel()

	t.Run("derived from artifacts", func(t *testing.T) {
		t.Parallel()

		s := NewServer(SampleArtifacts()[:3])
		defer s.Close()

		status, body := get(t, s.MetadataURL(), nil)
		require.Equal(t, http.StatusOK, status)

		var resp struct {
			Data catalog.Metadata `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, []string{"Vessel", "Figurine"}, catalog.Values(resp.Data.Shapes))
		assert.Equal(t, []string{"Inca", "Diaguita", "Moche"}, catalog.Values(resp.Data.Cultures))
		assert.Equal(t, []string{"Ceramic", "Ritual", "Funerary"}, catalog.Values(resp.Data.Tags))
	})

	t.Run("explicit", func(t *testing.T) {
		t.Parallel()

		s := NewServer(nil, WithMetadata(catalog.Metadata{Shapes: []catalog.Ref{{ID: 9, Value: "Textile"}}}))
		defer s.Close()

		status, body := get(t, s.MetadataURL(), nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"data": {"shapes": [{"id": 9, "value": "Textile"}], "cultures": [], "tags": []}}`, string(body))
	})
}

func TestServer_RequiredToken(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts(), WithRequiredToken("secret"))
	defer s.Close()

	status, body := get(t, s.ArtifactsURL(), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(body), "Authentication credentials were not provided.")

	status, _ = get(t, s.ArtifactsURL(), http.Header{"Authorization": {"Bearer secret"}})
	assert.Equal(t, http.StatusOK, status)

	reqs := s.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "", reqs[0].Authorization)
	assert.Equal(t, "Bearer secret", reqs[1].Authorization)
}

func TestServer_ArtifactDetail(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts(), WithRequiredToken("secret"))
	defer s.Close()
	auth := http.Header{"Authorization": {"Bearer secret"}}

	status, body := get(t, s.ArtifactURL(4), auth)
	require.Equal(t, http.StatusOK, status, string(body))
	var detail catalog.ArtifactDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, 4, detail.ID)
	assert.Equal(t, "Stone mortar with pestle", detail.Attributes.Description)
	require.NotNil(t, detail.Model)
	assert.Equal(t, "/media/objects/4.obj", detail.Model.Object)
	assert.Len(t, detail.Images, 2)

	for _, rawURL := range []string{s.ArtifactURL(404), s.URL + ArtifactPathPrefix + "jar/"} {
		status, body = get(t, rawURL, auth)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"detail": "Not found."}`, string(body))
	}

	status, _ = get(t, s.ArtifactURL(4), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_Login(t *testing.T) {
	t.Parallel()

	s := NewServer(nil, WithRequiredToken("tok-1"), WithAccount(Account{
		ID:       1,
		Username: "curator",
		Email:    "curator@example.org",
		Password: "obsidian",
		FullName: "Ana Curator",
		Token:    "tok-1",
	}))
	defer s.Close()

	post := func(body string) (int, []byte) {
		t.Helper()
		resp, err := http.Post(s.AuthURL(), "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		out, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, out
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid credentials",
			body:       `{"email": "curator@example.org", "password": "obsidian"}`,
			wantStatus: http.StatusOK,
			wantBody: `{"token": "tok-1", "user": {"id": 1, "username": "curator",
				"email": "curator@example.org", "full_name": "Ana Curator"}}`,
		},
		{
			name:       "missing password",
			body:       `{"email": "curator@example.org"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail": "Enter email and password"}`,
		},
		{
			name:       "unknown user",
			body:       `{"email": "visitor@example.org", "password": "obsidian"}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"detail": "User not found"}`,
		},
		{
			name:       "wrong password",
			body:       `{"email": "curator@example.org", "password": "basalt"}`,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"detail": "Wrong password"}`,
		},
	}
	for _, tt := range tests {
		status, body := post(tt.body)
		assert.Equal(t, tt.wantStatus, status, tt.name)
		assert.JSONEq(t, tt.wantBody, string(body), tt.name)
	}

	reqs := s.RequestsTo(AuthPath)
	require.Len(t, reqs, len(tests))
	assert.Equal(t, http.MethodPost, reqs[0].Method)
}

func TestServer_FailNextAndRecording(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts(), WithPageSize(5))
	defer s.Close()

	s.FailNext(1, Failure{Status: http.StatusInternalServerError, Body: "boom"})

	status, body := get(t, s.ArtifactsURL()+"?page=2", http.Header{"X-Request-Id": {"req-1"}})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "boom", string(body))

	page := getPage(t, s, "page=2")
	assert.Equal(t, []int{6, 7, 8, 9, 10}, ids(page.Data))
	assert.Equal(t, 4, page.TotalPages)

	reqs := s.RequestsTo(ArtifactsPath)
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-1", reqs[0].RequestID)
	assert.Equal(t, "2", reqs[1].Query.Get("page"))
	assert.Empty(t, s.RequestsTo(MetadataPath))
}

func TestServer_SetArtifacts(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts())
	defer s.Close()

	s.SetArtifacts(SampleArtifacts()[:2])
	page := getPage(t, s, "")
	assert.Equal(t, []int{1, 2}, ids(page.Data))
	assert.Equal(t, 1, page.TotalPages)
}

func TestBackend_ExtraRoutesAndNoRecording(t *testing.T) {
	t.Parallel()

	s := NewServer(SampleArtifacts(),
		WithoutRecording(),
		WithRequiredToken("secret"),
		WithRoutes(func(r chi.Router) {
			r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			})
		}),
	)
	defer s.Close()

	status, body := get(t, s.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))

	status, _ = get(t, s.ArtifactsURL(), http.Header{"Authorization": {"Bearer secret"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.Requests())
}
