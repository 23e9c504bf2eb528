package gaps

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newsatlas/hubcrawler/internal/hub"
	"github.com/newsatlas/hubcrawler/internal/predict"
)

const defaultContextTimeout = 5 * time.Second

// StoreContext builds the ContextFunc the planner hands to analyzers:
// learned patterns for the gap's kind plus, for composite kinds, the parent
// entity's confirmed hub URL so regional composition can extend it. Lookups
// are bounded so a slow store cannot stall planning; on lookup failure the
// context degrades to what the remaining strategies can do alone.
func StoreContext(store hub.Store, domain string, timeout time.Duration, logger *zap.Logger) ContextFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}
	return func(gap Gap) predict.Context {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var pctx predict.Context
		patterns, err := store.GetLearnedPatterns(ctx, domain, gap.Kind)
		if err != nil {
			logger.Debug("learned pattern lookup failed", zap.Error(err))
		}
		pctx.Patterns = patterns

		if parentID := parentEntityID(gap); parentID != "" {
			rec, err := store.GetConfirmedHub(ctx, domain, parentID)
			switch {
			case err != nil:
				logger.Debug("parent hub lookup failed",
					zap.String("entity", parentID), zap.Error(err))
			case rec != nil:
				pctx.ParentHubURL = rec.URL
			}
		}
		return pctx
	}
}

// parentEntityID names the entity whose confirmed hub a composite gap
// composes under: the parent entity for hierarchical gaps, the first
// (place) half otherwise. Single-entity gaps have no parent.
func parentEntityID(gap Gap) string {
	if !gap.Kind.IsComposite() {
		return ""
	}
	if gap.Kind == hub.CandidateHierarchicalHub {
		if gap.Second == nil {
			return ""
		}
		return gap.Second.ID
	}
	return gap.Entity.ID
}
