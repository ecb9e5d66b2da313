package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylite-technologies/payng/internal/identity"
	"github.com/paylite-technologies/payng/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	LinkedStudents(ctx context.Context, accountID string, role identity.Role) ([]identity.Student, error)
	CreateSession(ctx context.Context, id, accountID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err wraps the driver's unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `SELECT id, name, email, password_hash, role, COALESCE(institution_id, ''), permissions, is_active, created_at, updated_at
		FROM users WHERE email = $1`
	var (
		account Account
		role    string
	)
	err := r.db.QueryRow(ctx, query, email).Scan(
		&account.ID, &account.Name, &account.Email, &account.PasswordHash,
		&role, &account.InstitutionID, &account.Permissions, &account.IsActive,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	account.Role = identity.ParseRole(role)
	return &account, nil
}

// CreateAccount inserts a new account record.
func (r *PGRepository) CreateAccount(ctx context.Context, account *Account) error {
	const query = `INSERT INTO users (id, name, email, password_hash, role, institution_id, permissions, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`
	_, err := r.db.Exec(ctx, query,
		account.ID, account.Name, account.Email, account.PasswordHash,
		string(account.Role), account.InstitutionID, account.Permissions, account.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// LinkedStudents returns the linked entities for an account: the students
// linked to a guardian, or the account's own student record when the role
// is student.
func (r *PGRepository) LinkedStudents(ctx context.Context, accountID string, role identity.Role) ([]identity.Student, error) {
	var query string
	switch role {
	case identity.RoleParent, identity.RoleGuardian:
		query = `SELECT id, name, COALESCE(grade, ''), institution_id, COALESCE(parent_id, '')
			FROM students WHERE parent_id = $1 ORDER BY name`
	case identity.RoleStudent:
		query = `SELECT id, name, COALESCE(grade, ''), institution_id, COALESCE(parent_id, '')
			FROM students WHERE id = $1`
	default:
		return nil, nil
	}

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []identity.Student
	for rows.Next() {
		var s identity.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Grade, &s.InstitutionID, &s.ParentID); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// CreateSession persists a login session record for auditing and for the
// background sweep job.
func (r *PGRepository) CreateSession(ctx context.Context, id, accountID string, expiresAt time.Time, ip, ua string) error {
	const query = `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, now(), $3, NULLIF($4, ''), NULLIF($5, ''))`
	_, err := r.db.Exec(ctx, query, id, accountID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
