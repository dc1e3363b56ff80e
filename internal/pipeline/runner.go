package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/flip"
)

// Catalog is the slice of the API client the runner traverses. *flip.Client
// satisfies it.
type Catalog interface {
	Accepter
	ListBrands(ctx context.Context, filter flip.BrandFilter) []flip.Brand
	ListProductMappings(ctx context.Context, brandID string) []flip.ProductMapping
	ListVariants(ctx context.Context, mappingID string) []flip.Variant
	DetailedVariants(ctx context.Context, mappingID, brandID string) []flip.Variant
}

// CredentialSource is the token cache surface the runner needs.
// *auth.TokenCache satisfies it.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// RunStore persists a finished run summary. Optional.
type RunStore interface {
	SaveRun(summary *RunSummary) error
}

// RunSummary aggregates one full run.
type RunSummary struct {
	RunID      string
	Profile    string
	Scope      string
	Brands     int
	Totals     Totals
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner wires brand traversal, eligibility filtering and batched
// acceptance into one sequential run.
type Runner struct {
	cfg       *config.Config
	logger    logging
	client    Catalog
	tokens    CredentialSource
	policy    Policy
	submitter *Submitter
	store     RunStore
}

// NewRunner builds a runner. store may be nil to skip persistence.
func NewRunner(cfg *config.Config, logger logging, client Catalog, tokens CredentialSource, store RunStore) *Runner {
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		tokens:    tokens,
		policy:    PolicyFromConfig(cfg),
		submitter: NewSubmitter(client, tokens, cfg, logger),
		store:     store,
	}
}

// Run executes one full accept pass over the configured brand presets.
// Everything short of a missing usable credential is absorbed and logged;
// the summary always reflects what actually happened.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.New().String(),
		Profile:   r.cfg.PolicyProfile,
		Scope:     r.cfg.SubmitScope,
		StartedAt: time.Now(),
	}

	if _, err := r.tokens.Token(ctx); err != nil {
		return nil, fmt.Errorf("no usable credential: %w", err)
	}

	r.logger.Info("run %s started: profile=%s scope=%s presets=%v",
		summary.RunID, summary.Profile, summary.Scope, r.cfg.BrandPresets)

	var runIDs []string
	for _, key := range r.cfg.BrandPresets {
		filter, ok := flip.PresetFilter(key)
		if !ok {
			r.logger.Warn("unknown brand preset %q, skipping (known presets: %v)", key, flip.PresetKeys())
			continue
		}

		brands := r.client.ListBrands(ctx, filter)
		if len(brands) == 0 {
			r.logger.Warn("no brands found for preset %q", key)
			continue
		}

		for _, brand := range brands {
			if brand.ID == "" {
				r.logger.Warn("brand entry missing id, skipping")
				continue
			}
			if r.cfg.RequireIntegrationCompleted &&
				(!brand.IntegrationCompleted || brand.UnapprovedItemsNo <= 0) {
				r.logger.Debug("skipping brand %s (%s): integration incomplete or nothing unapproved", brand.Name, brand.ID)
				continue
			}

			summary.Brands++
			r.logger.Info("processing brand %s (%s)", brand.Name, brand.ID)
			ids := r.collectBrand(ctx, brand)

			if r.cfg.SubmitScope == "brand" {
				totals := r.submitter.Submit(ctx, ids)
				summary.Totals.Add(totals)
				r.logger.Info("brand %s summary: collected=%d attempted=%d approved=%d failed=%d",
					brand.Name, totals.Collected, totals.Attempted, totals.Approved, totals.Failed)
			} else {
				r.logger.Info("collected %d item mapping ids for brand %s", len(ids), brand.Name)
				runIDs = append(runIDs, ids...)
			}
		}
	}

	if r.cfg.SubmitScope == "run" {
		summary.Totals.Add(r.submitter.Submit(ctx, runIDs))
	}

	summary.FinishedAt = time.Now()
	r.logger.Info("run %s finished: brands=%d collected=%d attempted=%d approved=%d failed=%d chunksFailed=%d",
		summary.RunID, summary.Brands, summary.Totals.Collected, summary.Totals.Attempted,
		summary.Totals.Approved, summary.Totals.Failed, summary.Totals.ChunksFailed)

	if r.store != nil {
		if err := r.store.SaveRun(summary); err != nil {
			r.logger.Error("failed to persist run summary: %v", err)
		}
	}

	return summary, nil
}

// collectBrand walks a brand's product mappings and variants and returns
// the eligible item mapping ids in discovery order, without deduplication.
func (r *Runner) collectBrand(ctx context.Context, brand flip.Brand) []string {
	mappings := r.client.ListProductMappings(ctx, brand.ID)
	if len(mappings) == 0 {
		r.logger.Warn("no product mappings found for %s (%s)", brand.Name, brand.ID)
		return nil
	}

	var ids []string
	for _, mapping := range mappings {
		if mapping.ID == "" {
			r.logger.Warn("product mapping entry missing id, skipping")
			continue
		}

		variants := r.fetchVariants(ctx, mapping.ID, brand.ID)
		if len(variants) == 0 {
			r.logger.Warn("no variants found for product mapping %s", mapping.ID)
			continue
		}

		for _, variant := range variants {
			id, ok := variant.MappingID()
			if !ok {
				// Not the same as a policy rejection: the record is
				// incomplete, not ineligible.
				r.logger.Warn("variant %s in mapping %s has no item mapping id", variant.ID, mapping.ID)
				continue
			}
			if !r.policy.Eligible(variant) {
				r.logger.Debug("variant %s in mapping %s filtered out (inventory %d)",
					variant.ID, mapping.ID, variant.InventoryAmount)
				continue
			}
			ids = append(ids, id)
			r.logger.Debug("collected item mapping id %s (inventory %d)", id, variant.InventoryAmount)
		}
	}
	return ids
}

func (r *Runner) fetchVariants(ctx context.Context, mappingID, brandID string) []flip.Variant {
	if r.cfg.VariantsEndpoint == "detailed" {
		return r.client.DetailedVariants(ctx, mappingID, brandID)
	}
	return r.client.ListVariants(ctx, mappingID)
}
