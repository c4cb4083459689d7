package arr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRejectsUnknownKind(t *testing.T) {
	if _, err := NewClient("lidarr", "http://x", "k"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestNotifyDownloadComplete(t *testing.T) {
	tests := []struct {
		kind    string
		command string
	}{
		{"sonarr", "DownloadedEpisodesScan"},
		{"radarr", "DownloadedMoviesScan"},
		{"whisparr", "DownloadedEpisodesScan"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			var gotKey string
			var gotBody commandRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != "POST" || r.URL.Path != "/api/v3/command" {
					t.Errorf("%s %s", r.Method, r.URL.Path)
				}
				gotKey = r.Header.Get("X-Api-Key")
				if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
					t.Fatal(err)
				}
				w.WriteHeader(http.StatusCreated)
			}))
			defer srv.Close()

			client, err := NewClient(tt.kind, srv.URL+"/", "secret")
			if err != nil {
				t.Fatal(err)
			}
			if err := client.NotifyDownloadComplete(context.Background(), "/downloads/Show.S01"); err != nil {
				t.Fatalf("notify failed: %v", err)
			}

			if gotKey != "secret" {
				t.Errorf("X-Api-Key = %q", gotKey)
			}
			if gotBody.Name != tt.command {
				t.Errorf("command = %q, want %q", gotBody.Name, tt.command)
			}
			if gotBody.Path != "/downloads/Show.S01" {
				t.Errorf("path = %q", gotBody.Path)
			}
		})
	}
}

func TestNotifyReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient("sonarr", srv.URL, "wrong")
	if err != nil {
		t.Fatal(err)
	}
	if err := client.NotifyDownloadComplete(context.Background(), "/x"); err == nil {
		t.Fatal("expected error on 401")
	}
}
