package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"hesapkit.com/internal/logging"
)

const (
	GoogleIndexingScope    = "https://www.googleapis.com/auth/indexing"
	DefaultGoogleEndpoint  = "https://indexing.googleapis.com/v3/urlNotifications:publish"
	NotificationURLUpdated = "URL_UPDATED"
	NotificationURLDeleted = "URL_DELETED"
)

// NewGoogleHTTPClient returns a client that authenticates as the service
// account in credentialsJSON.
func NewGoogleHTTPClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, GoogleIndexingScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}

// NewGoogleHTTPClientFromFile reads the service-account file at path.
func NewGoogleHTTPClientFromFile(ctx context.Context, path string) (*http.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading google credentials: %w", err)
	}
	return NewGoogleHTTPClient(ctx, data)
}

type googleNotification struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Google publishes URL notifications to the Indexing API. Client must
// already carry OAuth credentials.
type Google struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

// Jobs returns one job per URL, since the API takes a single URL per call.
func (g *Google) Jobs(urls []string, deleted bool) []Job {
	typ := NotificationURLUpdated
	if deleted {
		typ = NotificationURLDeleted
	}
	jobs := make([]Job, 0, len(urls))
	for _, u := range urls {
		jobs = append(jobs, Job{
			Target: u,
			URLs:   1,
			Do: func(ctx context.Context) (int, error) {
				return g.publish(ctx, googleNotification{URL: u, Type: typ})
			},
		})
	}
	return jobs
}

func (g *Google) publish(ctx context.Context, n googleNotification) (int, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return 0, fmt.Errorf("encoding google notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building google request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(g.Client).Do(req)
	if err != nil {
		return 0, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, g.Logger, "close google indexing response")

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, statusError(resp)
	}
	return resp.StatusCode, nil
}
