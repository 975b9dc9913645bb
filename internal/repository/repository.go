package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var (
	ErrSellerNotFound        = errors.New("seller not found")
	ErrGroupNotFound         = errors.New("seller group not found")
	ErrAlreadyMember         = errors.New("seller is already a group member")
	ErrMissionNotFound       = errors.New("mission not found")
	ErrMissionHasEnrollments = errors.New("mission has enrollments")
	ErrEnrollmentNotFound    = errors.New("enrollment not found")
	ErrAlreadyEnrolled       = errors.New("already enrolled in mission")
	ErrLinkNotFound          = errors.New("link not found")
	ErrSlugTaken             = errors.New("link slug already taken")
	ErrLinkAlreadyAttributed = errors.New("link is attributed to another seller")
	ErrClickNotFound         = errors.New("click not found")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCommissionNotFound    = errors.New("commission not found")
	ErrPayoutBatchNotFound   = errors.New("payout batch not found")
	ErrNothingToPay          = errors.New("no commissions due for payout")
)

type Repository struct {
	db *sqlx.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn in a transaction, committing only when fn returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
