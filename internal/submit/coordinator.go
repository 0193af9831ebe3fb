// Package submit validates conversion requests, persists the pending job
// records, and hands each accepted job to the pipeline launcher.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"mixdown/internal/job"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Bulk submission bounds. A batch outside these limits is rejected wholesale.
const (
	BulkMin = 1
	BulkMax = 10
)

// Runner is the asynchronous execution hook a Coordinator hands accepted
// jobs to. In the daemon it is backed by the pipeline launcher.
type Runner interface {
	Launch(ctx context.Context, jobID int64, fn func(context.Context))
}

// Pipeline drives one accepted job to a terminal state.
type Pipeline interface {
	Run(ctx context.Context, jobID int64, sourceURL string)
}

// Coordinator is the submission front door shared by the API server and the
// CLI. It owns request validation and the all-or-nothing bulk contract.
type Coordinator struct {
	store        job.Store
	runner       Runner
	pipeline     Pipeline
	allowedHosts []string
	logger       *slog.Logger
}

// NewCoordinator constructs a Coordinator. A non-empty allowedHosts list
// restricts submissions to sources on those hosts.
func NewCoordinator(store job.Store, runner Runner, pipeline Pipeline, allowedHosts []string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:        store,
		runner:       runner,
		pipeline:     pipeline,
		allowedHosts: allowedHosts,
		logger:       logging.WithComponent(logger, "submit"),
	}
}

// Submit validates a single source URL, creates its pending record, and
// launches its pipeline. The returned record is the pending snapshot; the
// pipeline advances it asynchronously.
func (c *Coordinator) Submit(ctx context.Context, sourceURL string) (*job.Job, error) {
	normalized, err := ValidateSourceURL(sourceURL, c.allowedHosts...)
	if err != nil {
		return nil, err
	}
	record, err := c.store.Create(ctx, normalized)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "submit", "create job", normalized, err)
	}
	c.logger.Info("job accepted",
		logging.Int64(logging.FieldJobID, record.ID),
		logging.String("source_url", record.SourceURL),
	)
	c.launch(record)
	return record, nil
}

// SubmitBulk applies the all-or-nothing batch contract: every URL in the
// batch is validated before any record is created, and a batch outside
// [BulkMin, BulkMax] is rejected without side effects. On success exactly one
// pending record per input exists, in input order.
func (c *Coordinator) SubmitBulk(ctx context.Context, sourceURLs []string) ([]*job.Job, error) {
	if len(sourceURLs) < BulkMin || len(sourceURLs) > BulkMax {
		return nil, services.Wrap(services.ErrValidation, "submit", "bulk submit",
			fmt.Sprintf("batch size %d is outside %d..%d", len(sourceURLs), BulkMin, BulkMax), nil)
	}

	normalized := make([]string, 0, len(sourceURLs))
	for i, raw := range sourceURLs {
		cleaned, err := ValidateSourceURL(raw, c.allowedHosts...)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "submit", "bulk submit",
				fmt.Sprintf("entry %d", i+1), err)
		}
		normalized = append(normalized, cleaned)
	}

	records := make([]*job.Job, 0, len(normalized))
	for _, sourceURL := range normalized {
		record, err := c.store.Create(ctx, sourceURL)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "submit", "bulk submit", sourceURL, err)
		}
		records = append(records, record)
	}
	c.logger.Info("batch accepted", logging.Int("jobs", len(records)))

	for _, record := range records {
		c.launch(record)
	}
	return records, nil
}

func (c *Coordinator) launch(record *job.Job) {
	id := record.ID
	sourceURL := record.SourceURL
	c.runner.Launch(context.Background(), id, func(runCtx context.Context) {
		c.pipeline.Run(runCtx, id, sourceURL)
	})
}

// ValidateSourceURL checks that raw is an absolute http or https URL with a
// host, returning the trimmed form. A non-empty allowedHosts list further
// requires the host to match one of its entries, subdomains included.
// Failures carry the validation marker.
func ValidateSourceURL(raw string, allowedHosts ...string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url", "source url is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url", trimmed, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url",
			fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url", "missing host", nil)
	}
	if host := strings.ToLower(parsed.Hostname()); len(allowedHosts) > 0 && !hostAllowed(host, allowedHosts) {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url",
			fmt.Sprintf("unsupported source host %q", host), nil)
	}
	return trimmed, nil
}

func hostAllowed(host string, allowed []string) bool {
	for _, candidate := range allowed {
		if host == candidate || strings.HasSuffix(host, "."+candidate) {
			return true
		}
	}
	return false
}
