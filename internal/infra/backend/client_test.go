package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStream(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		wantHeader string
	}{
		{
			name:       "bearer token attached",
			token:      "secret-token",
			wantHeader: "Bearer secret-token",
		},
		{
			name:       "no token still requests",
			token:      "",
			wantHeader: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/tracks/track-1/stream", r.URL.Path)
				assert.Equal(t, tt.wantHeader, r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "audio/mpeg")
				_, _ = w.Write([]byte("ID3audio"))
			}))
			defer server.Close()

			client, err := New(Config{BaseURL: server.URL + "/api/v1", Token: tt.token})
			require.NoError(t, err)

			data, contentType, err := client.FetchStream(context.Background(), "track-1")
			require.NoError(t, err)
			assert.Equal(t, []byte("ID3audio"), data)
			assert.Equal(t, "audio/mpeg", contentType)
		})
	}
}

func TestFetchStream_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "Invalid token"}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, _, err = client.FetchStream(context.Background(), "track-1")
	require.Error(t, err)

	statusErr, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "Invalid token", statusErr.Message)
	assert.True(t, statusErr.IsUnauthorized())
	assert.Contains(t, err.Error(), "401")
}

func TestGetTrack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tracks/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "abc",
			"title": "Song",
			"artist": "Band",
			"duration": 0,
			"file_size": 1024,
			"mime_type": "audio/mpeg",
			"created_at": "2024-01-02T03:04:05Z"
		}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	tr, err := client.GetTrack(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tr.ID)
	assert.Equal(t, "Band", tr.Artist)
	assert.Equal(t, 0, tr.Duration)
	assert.Equal(t, int64(1024), tr.FileSize)
	assert.Equal(t, 2024, tr.CreatedAt.Year())
}

func TestGetTrack_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": "track not found"}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetTrack(context.Background(), "missing")
	statusErr, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.False(t, statusErr.IsUnauthorized())
}

func TestListTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tracks", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))

		fmt.Fprint(w, `{"tracks": [{"id": "a", "duration": 10}, {"id": "b"}], "limit": 100, "offset": 0}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	tracks, err := client.ListTracks(context.Background(), 500, -1)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].ID)
	assert.Equal(t, 10, tracks[0].Duration)
}

func TestGetPlaylist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playlists/p1", r.URL.Path)
		fmt.Fprint(w, `{"id": "p1", "name": "Mix", "tracks": [{"id": "a"}, {"id": "b"}]}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	p, err := client.GetPlaylist(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Mix", p.Name)
	assert.Equal(t, []string{"a", "b"}, p.TrackIDs())
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantToken  string
		wantStatus int
		wantErr    bool
	}{
		{
			name:      "success",
			status:    http.StatusOK,
			body:      `{"token": "jwt-abc", "expires_at": "2030-01-02T03:04:05Z", "user": {"username": "kim"}}`,
			wantToken: "jwt-abc",
		},
		{
			name:       "invalid credentials",
			status:     http.StatusUnauthorized,
			body:       `{"error": "invalid credentials"}`,
			wantStatus: http.StatusUnauthorized,
			wantErr:    true,
		},
		{
			name:    "missing token",
			status:  http.StatusOK,
			body:    `{"expires_at": "2030-01-02T03:04:05Z"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/auth/login", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req loginRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "kim", req.Username)
				assert.Equal(t, "hunter2", req.Password)

				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client, err := New(Config{BaseURL: server.URL})
			require.NoError(t, err)

			tok, err := client.Login(context.Background(), "kim", "hunter2")
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					statusErr, ok := AsStatusError(err)
					require.True(t, ok)
					assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
					assert.True(t, statusErr.IsUnauthorized())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, tok.AccessToken)
			assert.Equal(t, "Bearer", tok.Type())
			assert.Equal(t, 2030, tok.Expiry.Year())
		})
	}
}

func TestLogin_RequiresCredentials(t *testing.T) {
	client, err := New(Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "", "pw")
	assert.Error(t, err)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "::not a url"})
	assert.Error(t, err)
}
