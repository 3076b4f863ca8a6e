package indexing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"hesapkit.com/internal/logging"
)

// Job is one outbound notification. Do returns the HTTP status it got,
// or zero when no response arrived.
type Job struct {
	Target string
	URLs   int
	Do     func(ctx context.Context) (int, error)
}

// Result is the settled outcome of one job.
type Result struct {
	Target   string `json:"target"`
	URLs     int    `json:"urls"`
	Status   int    `json:"status"`
	OK       bool   `json:"ok"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// Report collects every result of one Notify call, in job order.
type Report struct {
	Results   []Result `json:"results"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

// AnySucceeded reports whether at least one target accepted the submission.
func (r Report) AnySucceeded() bool {
	return r.Succeeded > 0
}

// Notifier runs jobs concurrently. Every job settles on its own: a failure
// never cancels the others.
type Notifier struct {
	concurrency int
	attempts    uint
	delays      []time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

type NotifierOption func(*Notifier)

// WithConcurrency bounds how many jobs run at once.
func WithConcurrency(n int) NotifierOption {
	return func(nt *Notifier) {
		if n > 0 {
			nt.concurrency = n
		}
	}
}

// WithRetryDelays sets the wait before each retry; attempts are one more
// than the number of delays.
func WithRetryDelays(delays ...time.Duration) NotifierOption {
	return func(nt *Notifier) {
		nt.delays = delays
		nt.attempts = uint(len(delays) + 1)
	}
}

// WithAttemptTimeout bounds a single attempt.
func WithAttemptTimeout(d time.Duration) NotifierOption {
	return func(nt *Notifier) { nt.timeout = d }
}

func NewNotifier(logger *slog.Logger, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		concurrency: 8,
		attempts:    3,
		delays:      []time.Duration{500 * time.Millisecond, 2 * time.Second},
		timeout:     15 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify runs every job and waits for all of them.
func (n *Notifier) Notify(ctx context.Context, jobs []Job) Report {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(n.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = n.run(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, r := range results {
		if r.OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	logging.LogOperation(n.logger, "indexing_notify_completed",
		slog.Int("targets", len(jobs)),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed))
	return report
}

func (n *Notifier) run(ctx context.Context, job Job) Result {
	res := Result{Target: job.Target, URLs: job.URLs}

	status, err := retryJob(ctx, n, func(actx context.Context) (int, error) {
		res.Attempts++
		return job.Do(actx)
	})
	res.Status = status
	if err != nil {
		res.Error = err.Error()
		logging.LogError(n.logger, "indexing target failed", err,
			slog.String("component", "indexing"),
			slog.String("target", job.Target),
			slog.Int("status", status),
			slog.Int("attempts", res.Attempts))
		return res
	}
	res.OK = true
	return res
}

func retryJob(ctx context.Context, n *Notifier, do func(context.Context) (int, error)) (int, error) {
	var status int
	err := retry.Do(func() error {
		actx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		var err error
		status, err = do(actx)
		if err != nil && !transient(err) {
			return retry.Unrecoverable(err)
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(n.attempts),
		retry.DelayType(func(attempt uint, _ error, _ *retry.Config) time.Duration {
			if len(n.delays) == 0 {
				return 0
			}
			return n.delays[min(int(attempt), len(n.delays)-1)]
		}),
		retry.LastErrorOnly(true),
	)
	return status, err
}

// transient reports whether err is worth retrying: network failures, 429
// and 5xx responses.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}
