package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tunegrab/internal/catalog"
)

var yesterday = catalog.Track{
	Name:       "Yesterday",
	Artist:     "The Beatles",
	Album:      "Help!",
	DurationMS: 125000,
}

func testClient(srv *httptest.Server) *Client {
	return &Client{
		httpClient: srv.Client(),
		apiURL:     srv.URL,
		retryDelay: time.Millisecond,
	}
}

func TestFetchTrack(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{
			name:   "synced preferred over plain",
			status: http.StatusOK,
			body:   `{"syncedLyrics": "[00:12.00]Hello world", "plainLyrics": "Hello world"}`,
			want:   "[00:12.00]Hello world",
		},
		{
			name:   "plain fallback",
			status: http.StatusOK,
			body:   `{"syncedLyrics": "", "plainLyrics": "Just plain text"}`,
			want:   "Just plain text",
		},
		{
			name:   "no lyrics",
			status: http.StatusOK,
			body:   `{"syncedLyrics": "", "plainLyrics": ""}`,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"code":404,"name":"NotFoundError","message":"Failed to find specified track"}`,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `internal server error`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != "tunegrab/1.0" {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := testClient(srv).FetchTrack(context.Background(), yesterday)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchTrack() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FetchTrack() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchTrackQueryParams(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"syncedLyrics": "", "plainLyrics": ""}`))
	}))
	defer srv.Close()

	if _, err := testClient(srv).FetchTrack(context.Background(), yesterday); err != nil {
		t.Fatalf("FetchTrack: %v", err)
	}

	want := map[string]string{
		"artist_name": "The Beatles",
		"track_name":  "Yesterday",
		"album_name":  "Help!",
		"duration":    "125",
	}
	for key, val := range want {
		if len(query[key]) == 0 || query[key][0] != val {
			t.Errorf("param %s = %v, want %q", key, query[key], val)
		}
	}
}

func TestFetchTrackOmitsUnknownDuration(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	track := yesterday
	track.DurationMS = 0
	if _, err := testClient(srv).FetchTrack(context.Background(), track); err != nil {
		t.Fatalf("FetchTrack: %v", err)
	}
	if len(query["duration"]) != 0 {
		t.Errorf("duration param sent for unknown duration: %v", query["duration"])
	}
}

func TestFetchTrackNoRetryOnAPIError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testClient(srv).FetchTrack(context.Background(), yesterday); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("API error retried: %d calls, want 1", calls)
	}
}

func TestFetchTrackRetriesTransientError(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// Hang past the client timeout to look like a dead network.
			time.Sleep(200 * time.Millisecond)
			return
		}
		w.Write([]byte(`{"syncedLyrics": "", "plainLyrics": "after retry"}`))
	}))
	defer srv.Close()

	c := testClient(srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	got, err := c.FetchTrack(context.Background(), yesterday)
	if err != nil {
		t.Fatalf("FetchTrack: %v", err)
	}
	if got != "after retry" {
		t.Errorf("FetchTrack() = %q, want %q", got, "after retry")
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
