// Package backend provides a client for the maxify REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/osa030/maxify/internal/domain/playlist"
	"github.com/osa030/maxify/internal/domain/track"
)

// DefaultBaseURL is the API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api/v1"

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// IsUnauthorized reports whether the backend rejected the credential.
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Config represents backend client configuration.
type Config struct {
	BaseURL string
	Token   string // Bearer token; empty means anonymous requests
	Timeout time.Duration
}

// Client is a maxify backend client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

// errorResponse is the backend's error body.
type errorResponse struct {
	Error string `json:"error"`
}

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the issued bearer token.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// listTracksResponse is the body of GET /tracks.
type listTracksResponse struct {
	Tracks []track.Track `json:"tracks"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid backend base URL %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var tokens oauth2.TokenSource
	if cfg.Token != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}

	return NewWithTokenSource(strings.TrimRight(baseURL, "/"), &http.Client{Timeout: timeout}, tokens), nil
}

// NewWithTokenSource creates a client with an explicit HTTP client and token source.
// tokens may be nil, in which case requests carry no credential.
func NewWithTokenSource(baseURL string, httpClient *http.Client, tokens oauth2.TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// StreamURL returns the stream endpoint for a track.
func (c *Client) StreamURL(trackID string) string {
	return c.baseURL + "/tracks/" + url.PathEscape(trackID) + "/stream"
}

// FetchStream downloads the audio bytes of a track.
// A missing credential is not an error here; the server decides.
func (c *Client) FetchStream(ctx context.Context, trackID string) ([]byte, string, error) {
	if trackID == "" {
		return nil, "", errors.New("track ID is required")
	}

	resp, err := c.do(ctx, http.MethodGet, c.StreamURL(trackID), nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read stream body")
	}

	contentType := resp.Header.Get("Content-Type")
	zlog.Debug().Msgf("backend: fetched stream: track_id=%s bytes=%d content_type=%s", trackID, len(data), contentType)
	return data, contentType, nil
}

// GetTrack retrieves track metadata by ID.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Track, error) {
	if trackID == "" {
		return nil, errors.New("track ID is required")
	}

	var t track.Track
	if err := c.getJSON(ctx, c.baseURL+"/tracks/"+url.PathEscape(trackID), &t); err != nil {
		return nil, errors.Wrapf(err, "failed to get track %s", trackID)
	}
	return &t, nil
}

// ListTracks retrieves the caller's tracks.
func (c *Client) ListTracks(ctx context.Context, limit, offset int) ([]track.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var response listTracksResponse
	if err := c.getJSON(ctx, c.baseURL+"/tracks?"+params.Encode(), &response); err != nil {
		return nil, errors.Wrap(err, "failed to list tracks")
	}
	if response.Tracks == nil {
		return []track.Track{}, nil
	}
	return response.Tracks, nil
}

// GetPlaylist retrieves a playlist with its tracks.
func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (*playlist.Playlist, error) {
	if playlistID == "" {
		return nil, errors.New("playlist ID is required")
	}

	var p playlist.Playlist
	if err := c.getJSON(ctx, c.baseURL+"/playlists/"+url.PathEscape(playlistID), &p); err != nil {
		return nil, errors.Wrapf(err, "failed to get playlist %s", playlistID)
	}
	return &p, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode login request")
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "login failed")
	}
	defer resp.Body.Close()

	var response loginResponse
	if err := decodeJSON(resp.Body, &response); err != nil {
		return nil, err
	}
	if response.Token == "" {
		return nil, errors.New("login response has no token")
	}

	zlog.Debug().Msgf("backend: logged in: username=%s expires_at=%s", username, response.ExpiresAt.Format(time.RFC3339))
	return &oauth2.Token{
		AccessToken: response.Token,
		TokenType:   "Bearer",
		Expiry:      response.ExpiresAt,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp.Body, out)
}

func decodeJSON(r io.Reader, out any) error {

	body, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// do issues an authorized request and converts non-2xx responses to
// *StatusError. On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, reqURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: reqURL}

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiError errorResponse
		if err := json.Unmarshal(errBody, &apiError); err == nil {
			statusErr.Message = apiError.Error
		}

		zlog.Debug().Msgf("backend: request failed: url=%s status=%d message=%s", reqURL, resp.StatusCode, statusErr.Message)
		return nil, statusErr
	}

	return resp, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return errors.Wrap(err, "failed to obtain access token")
	}
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	tok.SetAuthHeader(req)
	return nil
}
