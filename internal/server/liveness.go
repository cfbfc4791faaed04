package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/srdc/messageapp/internal/core/ports"
)

// DefaultLivenessInterval is the period between account-removal checks. A
// removed account's session terminates within one interval of the removal.
const DefaultLivenessInterval = 5 * time.Second

// RemovalNotice is the terminal line sent before a force-close.
const RemovalNotice = "You have been removed by an admin. Client will now close."

// livenessMonitor periodically re-verifies that the session's account still
// exists. One monitor runs per session for the session's whole lifetime,
// across logins and logouts within it.
type livenessMonitor struct {
	session  *Session
	accounts ports.AccountService
	interval time.Duration
	log      zerolog.Logger
}

func newLivenessMonitor(session *Session, accounts ports.AccountService, interval time.Duration, log zerolog.Logger) *livenessMonitor {
	return &livenessMonitor{
		session:  session,
		accounts: accounts,
		interval: interval,
		log:      log,
	}
}

// Run ticks until the session's context is cancelled or the account is
// found removed. Anonymous ticks are no-ops; store errors are logged and
// retried on the next tick rather than treated as removal.
func (m *livenessMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			identity := m.session.Identity()
			if identity == "" {
				continue
			}

			if p := m.session.presence; p != nil {
				if err := p.Heartbeat(ctx, identity); err != nil {
					m.log.Debug().Err(err).Str("username", identity).Msg("presence heartbeat failed")
				}
			}

			removed, err := m.accounts.IsRemoved(ctx, identity)
			if err != nil {
				m.log.Warn().Err(err).Str("username", identity).Msg("liveness check failed")
				continue
			}
			if removed {
				m.log.Info().Str("username", identity).Msg("account removed, terminating session")
				livenessRemovalsTotal.Inc()
				m.session.forceRemove()
				return
			}
		}
	}
}
