package jobs

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylite-technologies/payng/internal/auth"
	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/shared"
)

// ResyncLinkedStudents re-reads the student links for one account and pushes
// the fresh snapshot into every live session that account holds. Sessions
// pick up link changes on their next request without forcing a re-login.
func ResyncLinkedStudents(ctx context.Context, accountID string, pool *pgxpool.Pool, repo auth.Repository, sessions *shared.SessionManager, logger *slog.Logger) error {
	if pool == nil || repo == nil || sessions == nil {
		return nil
	}

	var roleName string
	if err := pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, accountID).Scan(&roleName); err != nil {
		if logger != nil {
			logger.Warn("resync students: account lookup",
				slog.String("account_id", accountID),
				slog.Any("error", err))
		}
		return err
	}

	students, err := repo.LinkedStudents(ctx, accountID, identity.ParseRole(roleName))
	if err != nil {
		return err
	}

	rows, err := pool.Query(ctx, `SELECT id FROM sessions WHERE user_id = $1 AND expires_at > now()`, accountID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var updated int
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return err
		}
		if err := sessions.RefreshStudents(ctx, sessionID, students); err != nil {
			if logger != nil {
				logger.Warn("resync students: refresh session",
					slog.String("session_id", sessionID),
					slog.Any("error", err))
			}
			continue
		}
		updated++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("resynced linked students",
			slog.String("job", "student_resync"),
			slog.String("account_id", accountID),
			slog.Int("students", len(students)),
			slog.Int("sessions", updated))
	}
	return nil
}
