package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"hesapkit.com/internal/logging"
)

// DefaultIndexNowEndpoints are the engines notified when none are configured.
var DefaultIndexNowEndpoints = []string{
	"https://api.indexnow.org/indexnow",
	"https://www.bing.com/indexnow",
	"https://yandex.com/indexnow",
}

type indexNowRequest struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// IndexNow submits URL batches to IndexNow endpoints.
type IndexNow struct {
	Host        string
	Key         string
	KeyLocation string
	Endpoints   []string
	Client      *http.Client
	Logger      *slog.Logger
}

// KeyFilePath is where the key verification file is served.
func KeyFilePath(key string) string {
	return "/" + key + ".txt"
}

// Jobs returns one job per endpoint, each posting the whole list.
func (n *IndexNow) Jobs(urls []string) []Job {
	endpoints := n.Endpoints
	if len(endpoints) == 0 {
		endpoints = DefaultIndexNowEndpoints
	}
	body := indexNowRequest{Host: n.Host, Key: n.Key, KeyLocation: n.KeyLocation, URLList: urls}
	jobs := make([]Job, 0, len(endpoints))
	for _, endpoint := range endpoints {
		jobs = append(jobs, Job{
			Target: endpoint,
			URLs:   len(urls),
			Do: func(ctx context.Context) (int, error) {
				return n.post(ctx, endpoint, body)
			},
		})
	}
	return jobs
}

func (n *IndexNow) post(ctx context.Context, endpoint string, body indexNowRequest) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encoding indexnow request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building indexnow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := httpClient(n.Client).Do(req)
	if err != nil {
		return 0, err
	}
	defer logging.SafeCloseWithLogging(resp.Body, n.Logger, "close indexnow response")

	// 200 means accepted, 202 means accepted pending key validation.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return resp.StatusCode, statusError(resp)
	}
	return resp.StatusCode, nil
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
