package risk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/latticehq/lattice-core/internal/config"
	"github.com/latticehq/lattice-core/pkg/apperror"
	"github.com/latticehq/lattice-core/pkg/logger"
	"github.com/latticehq/lattice-core/pkg/monitoring"
)

// sweepWindow bounds how far back a sweep looks for fresh evaluations.
const sweepWindow = 24 * time.Hour

// Sweeper periodically scans recent evaluations and flags opportunities
// whose risk crossed the warning threshold since their previous
// evaluation.
type Sweeper struct {
	evals     EvaluationStore
	threshold float64
	log       *slog.Logger
}

// NewSweeper creates the early-warning sweeper.
func NewSweeper(evals EvaluationStore, cfg *config.Config, log *slog.Logger) *Sweeper {
	return &Sweeper{
		evals:     evals,
		threshold: float64(cfg.Risk.WarningThreshold),
		log:       log.With(logger.Scope("risk.sweeper")),
	}
}

// RunOnce performs a single sweep and returns the number of flagged
// opportunities. An opportunity is flagged when its newest evaluation is
// at or above the threshold and the one before it was below (or absent).
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	since := time.Now().Add(-sweepWindow)

	recent, err := s.evals.RecentHighRisk(ctx, s.threshold, since)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, eval := range recent {
		prior, err := s.evals.LatestBefore(ctx, eval.TenantID, eval.OpportunityID, eval.EvaluatedAt)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			s.log.Warn("skipping opportunity, prior evaluation lookup failed",
				logger.Error(err),
				slog.String("opportunity_id", eval.OpportunityID.String()))
			continue
		}
		if prior != nil && prior.Score >= s.threshold {
			// Already above threshold before; not a new crossing.
			continue
		}

		flagged++
		monitoring.EarlyWarningAlerts.Inc()
		s.log.Warn("opportunity crossed risk warning threshold",
			slog.String("tenant_id", eval.TenantID.String()),
			slog.String("opportunity_id", eval.OpportunityID.String()),
			slog.Float64("score", eval.Score),
			slog.String("risk_level", string(eval.RiskLevel)))
	}

	if flagged > 0 || len(recent) > 0 {
		s.log.Info("early-warning sweep finished",
			slog.Int("candidates", len(recent)),
			slog.Int("flagged", flagged))
	}

	return flagged, nil
}

// RegisterSweep schedules the sweeper on the configured cron expression.
func RegisterSweep(lc fx.Lifecycle, sweeper *Sweeper, cfg *config.Config, log *slog.Logger) error {
	scopedLog := log.With(logger.Scope("risk.sweep_schedule"))

	if !cfg.Risk.SweepEnabled {
		scopedLog.Info("early-warning sweep disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(cfg.Risk.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := sweeper.RunOnce(ctx); err != nil {
			scopedLog.Error("early-warning sweep failed", logger.Error(err))
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			scopedLog.Info("early-warning sweep scheduled",
				slog.String("schedule", cfg.Risk.SweepSchedule))
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})

	return nil
}
