package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/flip"
)

// Accepter is the slice of the API client the submitter needs.
type Accepter interface {
	AcceptItemMappings(ctx context.Context, itemIDs []string) (*flip.AcceptResponse, error)
}

// CredentialRefresher forces a new credential after a 401.
type CredentialRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// Totals is the partial-failure accounting for one Submit call. A chunk
// that failed to submit at all counts in ChunksFailed and never in Failed;
// Failed only counts items the API rejected inside an otherwise successful
// chunk.
type Totals struct {
	Collected    int
	Attempted    int
	Approved     int
	Failed       int
	ChunksSent   int
	ChunksFailed int
}

// Add folds another Totals into this one.
func (t *Totals) Add(other Totals) {
	t.Collected += other.Collected
	t.Attempted += other.Attempted
	t.Approved += other.Approved
	t.Failed += other.Failed
	t.ChunksSent += other.ChunksSent
	t.ChunksFailed += other.ChunksFailed
}

// Submitter partitions collected mapping ids into fixed-size batches and
// accepts them sequentially. The approved count carries across Submit calls,
// so a target bounds the whole run even when submitting per brand.
type Submitter struct {
	client    Accepter
	tokens    CredentialRefresher
	batchSize int
	target    int // 0 means no target
	limiter   *rate.Limiter
	logger    logging

	approvedTotal int
}

// logging is the subset of *logger.Logger the pipeline uses.
type logging interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

func NewSubmitter(client Accepter, tokens CredentialRefresher, cfg *config.Config, logger logging) *Submitter {
	return &Submitter{
		client:    client,
		tokens:    tokens,
		batchSize: cfg.BatchSize,
		target:    cfg.AcceptTarget,
		// The limiter spaces chunk submissions out by BatchDelay. Its burst
		// of one lets the first chunk go immediately, so there is no
		// trailing delay after the last chunk either.
		limiter: rate.NewLimiter(rate.Every(cfg.BatchDelay), 1),
		logger:  logger,
	}
}

// Submit accepts the ids in contiguous batches, stopping early once the
// configured target of approved items has been reached. Failed chunks are
// dropped, not retried, except for a single retry with a refreshed
// credential after a 401.
func (s *Submitter) Submit(ctx context.Context, ids []string) Totals {
	totals := Totals{Collected: len(ids)}
	if len(ids) == 0 {
		s.logger.Warn("no item mapping ids collected for acceptance")
		return totals
	}

	for start := 0; start < len(ids); start += s.batchSize {
		if s.target > 0 && s.approvedTotal >= s.target {
			s.logger.Info("reached target of %d accepted items, stopping further accepts", s.target)
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Error("submit interrupted: %v", err)
			break
		}

		end := min(start+s.batchSize, len(ids))
		chunk := ids[start:end]
		totals.Attempted += len(chunk)
		s.logger.Info("accepting batch of %d item mapping ids", len(chunk))

		resp, err := s.acceptWithRetry(ctx, chunk)
		if err != nil {
			s.logger.Error("failed to accept batch of %d ids: %v", len(chunk), err)
			totals.ChunksFailed++
			continue
		}

		approved := resp.Approved()
		failed := resp.Failed()
		totals.ChunksSent++
		totals.Approved += approved
		totals.Failed += failed
		s.approvedTotal += approved
		s.logger.Info("batch result: %d succeeded, %d failed, total accepted %d", approved, failed, s.approvedTotal)
	}

	return totals
}

// acceptWithRetry retries a chunk at most once, and only after a 401 with a
// freshly refreshed credential.
func (s *Submitter) acceptWithRetry(ctx context.Context, chunk []string) (*flip.AcceptResponse, error) {
	resp, err := s.client.AcceptItemMappings(ctx, chunk)
	if err == nil || !errors.Is(err, flip.ErrUnauthorized) {
		return resp, err
	}

	s.logger.Warn("accept returned 401, refreshing access token and retrying once")
	if _, rerr := s.tokens.Refresh(ctx); rerr != nil {
		return nil, fmt.Errorf("token refresh after 401 failed: %w", rerr)
	}
	return s.client.AcceptItemMappings(ctx, chunk)
}
