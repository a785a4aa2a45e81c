// Package sweeper periodically removes abandoned OAuth state records from
// the credential vault.
package sweeper

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

const stateSuffix = "_state"

// Pruner is the vault operation the sweeper needs
type Pruner interface {
	Prune(drop func(userID, service string, raw []byte) bool) (int, error)
}

type Sweeper struct {
	store    Pruner
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func New(store Pruner, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Start sweeps once, then on every tick until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Dur("ttl", s.ttl).Msg("starting oauth state sweeper")

	if _, err := s.Sweep(); err != nil {
		logging.Warn().Err(err).Msg("initial state sweep failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("state sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				logging.Error().Err(err).Msg("state sweep failed")
			}
		}
	}
}

// Sweep removes state records older than the TTL. Records that cannot be
// decoded are removed as well.
func (s *Sweeper) Sweep() (int, error) {
	now := s.now()
	removed, err := s.store.Prune(func(userID, service string, raw []byte) bool {
		if !strings.HasSuffix(service, stateSuffix) {
			return false
		}
		var state models.OAuthState
		if err := json.Unmarshal(raw, &state); err != nil {
			return true
		}
		return state.Expired(now, s.ttl)
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		logging.Info().Int("removed", removed).Msg("expired oauth states removed")
	}
	return removed, nil
}
