package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepExpiredSessions deletes session rows whose expiry has passed. The
// redis entries expire on their own; this trims the postgres ledger that
// backs resync lookups and login auditing.
func SweepExpiredSessions(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (int64, error) {
	if pool == nil {
		return 0, nil
	}
	tag, err := pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		if logger != nil {
			logger.Error("sweep expired sessions", slog.Any("error", err))
		}
		return 0, err
	}
	removed := tag.RowsAffected()
	if logger != nil && removed > 0 {
		logger.Info("swept expired sessions",
			slog.String("job", "session_sweep"),
			slog.Int64("removed", removed))
	}
	return removed, nil
}
