// Package indexing notifies search engines about changed pages through
// IndexNow and the Google Indexing API.
package indexing

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"hesapkit.com/internal/validate"
)

// MaxURLs is the most URLs accepted in one request, the IndexNow limit.
const MaxURLs = 10000

// SecretHeader carries the shared secret on indexing requests.
const SecretHeader = "X-Indexing-Secret"

var ErrUnauthorized = errors.New("invalid indexing secret")

// Authorize compares the presented secret with the configured one in
// constant time. An empty configured secret rejects everything.
func Authorize(presented, secret string) error {
	if secret == "" || presented == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// CheckURLs validates a submission against the site base URL. It returns
// the URLs with duplicates removed, in their original order.
func CheckURLs(baseURL string, urls []string) ([]string, error) {
	errs := validate.New()
	if len(urls) == 0 {
		errs.Add("urls", validate.CodeRequired)
		return nil, errs.Err()
	}
	if len(urls) > MaxURLs {
		errs.Add("urls", validate.CodeTooLarge, MaxURLs)
		return nil, errs.Err()
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	prefix := strings.TrimSuffix(base.Path, "/") + "/"

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for i, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme != base.Scheme || !strings.EqualFold(u.Host, base.Host) ||
			!(u.Path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(u.Path, prefix)) {
			errs.Add(fmt.Sprintf("urls.%d", i), validate.CodeInvalidValue)
			continue
		}
		s := u.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StatusError is a non-success response from a search engine.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transient reports whether a retry could succeed.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// statusError reads a short excerpt of the body for the error message.
func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
