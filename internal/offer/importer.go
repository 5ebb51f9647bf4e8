package offer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// Creator persists a validated offer definition.
type Creator interface {
	Create(ctx context.Context, req model.CreateOfferRequest) (*model.Offer, error)
}

// ImportSummary counts the outcome of an import run.
type ImportSummary struct {
	Files       int `json:"files"`
	Definitions int `json:"definitions"`
	Created     int `json:"created"`
	Existing    int `json:"existing"`
	Rejected    int `json:"rejected"`
}

// Importer creates offers from definition files. Imported definitions are
// keyed by code, so a definition without a code is rejected and an offer whose
// code already exists is left untouched.
type Importer struct {
	loader  Loader
	creator Creator
	logger  zerolog.Logger
}

// NewImporter creates a new offer importer.
func NewImporter(loader Loader, creator Creator, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:  loader,
		creator: creator,
		logger:  logger.With().Str("component", "offer-importer").Logger(),
	}
}

// Import loads every path concurrently, then creates the offers in file order.
// Any file that fails to load aborts the run before anything is created.
func (i *Importer) Import(ctx context.Context, paths []string) (ImportSummary, error) {
	summary := ImportSummary{Files: len(paths)}
	if len(paths) == 0 {
		return summary, nil
	}

	i.logger.Info().Int("file_count", len(paths)).Msg("importing offer files")

	type loadResult struct {
		index int
		defs  []model.CreateOfferRequest
		err   error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, p string) {
			defer wg.Done()

			defs, err := i.loader.Load(ctx, p)
			resultChan <- loadResult{index: index, defs: defs, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	for idx, result := range results {
		if result.err != nil {
			i.logger.Error().Err(result.err).Str("file", paths[idx]).Msg("failed to load offer file")
			return summary, fmt.Errorf("failed to load offer file %s: %w", paths[idx], result.err)
		}
		summary.Definitions += len(result.defs)
	}

	seen := NewCodeSet(summary.Definitions)

	for idx, result := range results {
		for _, def := range result.defs {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			if def.Code == nil || strings.TrimSpace(*def.Code) == "" {
				i.logger.Warn().Str("file", paths[idx]).Str("title", def.Title).Msg("offer definition without code rejected")
				summary.Rejected++
				continue
			}
			code := *def.Code

			if !seen.Add(code) {
				i.logger.Warn().Str("file", paths[idx]).Str("code", code).Msg("offer code repeated across definitions")
				summary.Rejected++
				continue
			}

			def.NotifyUsers = false
			_, err := i.creator.Create(ctx, def)

			var domainErr *model.DomainError
			switch {
			case err == nil:
				summary.Created++
			case errors.Is(err, model.ErrOfferCodeConflict):
				summary.Existing++
			case errors.As(err, &domainErr):
				i.logger.Warn().
					Str("file", paths[idx]).
					Str("code", code).
					Str("reason", domainErr.Message).
					Msg("invalid offer definition rejected")
				summary.Rejected++
			default:
				return summary, fmt.Errorf("failed to import offer %s: %w", code, err)
			}
		}
	}

	i.logger.Info().
		Int("definitions", summary.Definitions).
		Int("created", summary.Created).
		Int("existing", summary.Existing).
		Int("rejected", summary.Rejected).
		Msg("offer import finished")

	return summary, nil
}
