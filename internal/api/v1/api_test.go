package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/queue"
)

type stubGrouper struct{}

func (stubGrouper) Group(_ context.Context, urls []string) ([]*media.PlayableItem, error) {
	items := make([]*media.PlayableItem, 0, len(urls))
	for _, u := range urls {
		items = append(items, &media.PlayableItem{Kind: media.KindEpisode, Title: "Test Show", Season: 1, Episode: 1, URL: u})
	}
	return items, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, *media.PlayableItem, string, string) (string, error) {
	return "https://cdn.example.com/video.mp4", nil
}

// stubTransfer blocks until its context is cancelled, keeping jobs active
// for the duration of a test.
type stubTransfer struct{}

func (stubTransfer) Transfer(ctx context.Context, _ *media.PlayableItem, _ string, _ func(queue.ProgressEvent) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := provider.NewRegistry(nil)
	manager := queue.NewManager(queue.Deps{
		Resolver:  stubResolver{},
		Providers: registry,
		Transfer:  stubTransfer{},
		Grouper:   stubGrouper{},
	}, queue.Options{
		DestRoot:     t.TempDir(),
		PollInterval: 10 * time.Millisecond,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	mux := http.NewServeMux()
	api := New(manager, registry, Config{Version: "test", DefaultLanguage: "German Dub"})
	api.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSubmitBatch(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{"https://example.com/episode-1", "https://example.com/episode-2"},
		"language":  "German Dub",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[submitResponse](t, resp)
	assert.Equal(t, []int64{1, 2}, body.JobIDs)
}

func TestSubmitBatch_MissingTitle(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"item_urls": []string{"https://example.com/episode-1"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "missing_title", body.Code)
}

func TestSubmitBatch_EmptyBatch(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "empty_batch", body.Code)
}

func TestSubmitBatch_UnknownProvider(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{"https://example.com/episode-1"},
		"provider":  "MegaUpload",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "unknown_provider", body.Code)
}

func TestSubmitBatch_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/queue", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "invalid_json", body.Code)
}

func TestSubmitBatch_AppliesDefaultLanguage(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{"https://example.com/episode-1"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = decodeBody[submitResponse](t, resp)

	statusResp, err := http.Get(srv.URL + "/api/v1/queue/status")
	require.NoError(t, err)
	snap := decodeBody[queue.Snapshot](t, statusResp)
	require.Len(t, snap.Active, 1)
	assert.Equal(t, "German Dub", snap.Active[0].Language)
}

func TestQueueStatus(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{"https://example.com/episode-1", "https://example.com/episode-2"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = decodeBody[submitResponse](t, resp)

	statusResp, err := http.Get(srv.URL + "/api/v1/queue/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, statusResp.StatusCode)

	snap := decodeBody[queue.Snapshot](t, statusResp)
	require.Len(t, snap.Active, 2)
	assert.Equal(t, "Test Show", snap.Active[0].BatchTitle)
	assert.Equal(t, 1, snap.Active[0].ItemIndex)
	assert.Equal(t, 2, snap.Active[1].ItemIndex)
	assert.Empty(t, snap.Completed)
}

func TestCancelJob(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue", map[string]any{
		"title":     "Test Show",
		"item_urls": []string{"https://example.com/episode-1"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ids := decodeBody[submitResponse](t, resp).JobIDs
	require.Len(t, ids, 1)

	cancelResp := postJSON(t, srv.URL+"/api/v1/queue/1/cancel", struct{}{})
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)
	assert.True(t, decodeBody[cancelResponse](t, cancelResp).Success)
}

func TestCancelJob_Unknown(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue/999/cancel", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeBody[cancelResponse](t, resp).Success)
}

func TestCancelJob_InvalidID(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/queue/abc/cancel", struct{}{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "invalid_id", body.Code)
}

func TestSetConcurrency(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/queue/concurrency",
		bytes.NewReader([]byte(`{"max_concurrent": 5}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[concurrencyResponse](t, resp)
	assert.Equal(t, 5, body.MaxConcurrent)
}

func TestSetConcurrency_Invalid(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/v1/queue/concurrency",
		bytes.NewReader([]byte(`{"max_concurrent": 0}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, "invalid_concurrency", body.Code)
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[statusResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, 3, body.MaxConcurrent)
	assert.Zero(t, body.Queued)
	assert.Zero(t, body.Running)
}

func TestListProviders(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/providers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[providersResponse](t, resp)
	assert.Equal(t, provider.DefaultOrder, body.Order)
}
