package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/repository"
)

var _ repository.AttemptRepository = (*attemptRepo)(nil)

// attemptRepo journals purchase attempts. Rows in state "verifying" whose
// card was confirmed but whose backend verification failed are picked up by
// the reconciler.
type attemptRepo struct{ pool *pgxpool.Pool }

func NewAttemptRepo(pool *pgxpool.Pool) *attemptRepo {
	return &attemptRepo{pool: pool}
}

func (r *attemptRepo) Save(ctx context.Context, a *model.PurchaseAttempt) error {
	const q = `
INSERT INTO purchase_attempts (
  id, user_id, plan_id, intent_id, client_secret, state, credits_expected, failure_code, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := r.pool.Exec(ctx, q, a.ID, a.UserID, a.PlanID, a.IntentID, a.ClientSecret,
		a.State, a.CreditsExpected, a.FailureCode, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *attemptRepo) UpdateState(ctx context.Context, id string, state model.PurchaseState, failureCode string) error {
	const q = `UPDATE purchase_attempts SET state=$2, failure_code=$3, updated_at=NOW() WHERE id=$1;`
	tag, err := r.pool.Exec(ctx, q, id, state, failureCode)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attemptRepo) SetIntent(ctx context.Context, id, intentID, clientSecret string) error {
	const q = `UPDATE purchase_attempts SET intent_id=$2, client_secret=$3, updated_at=NOW() WHERE id=$1;`
	tag, err := r.pool.Exec(ctx, q, id, intentID, clientSecret)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attemptRepo) FindByIntentID(ctx context.Context, intentID string) (*model.PurchaseAttempt, error) {
	const q = `SELECT id, user_id, plan_id, intent_id, client_secret, state, credits_expected, failure_code, created_at, updated_at
FROM purchase_attempts WHERE intent_id=$1 LIMIT 1;`
	row := r.pool.QueryRow(ctx, q, intentID)
	a := &model.PurchaseAttempt{}
	if err := row.Scan(&a.ID, &a.UserID, &a.PlanID, &a.IntentID, &a.ClientSecret, &a.State,
		&a.CreditsExpected, &a.FailureCode, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func (r *attemptRepo) ListInStateOlderThan(ctx context.Context, state model.PurchaseState, cutoff time.Time, limit int) ([]*model.PurchaseAttempt, error) {
	const q = `SELECT id, user_id, plan_id, intent_id, client_secret, state, credits_expected, failure_code, created_at, updated_at
FROM purchase_attempts WHERE state=$1 AND updated_at < $2 ORDER BY updated_at ASC LIMIT $3;`
	rows, err := r.pool.Query(ctx, q, state, cutoff, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PurchaseAttempt
	for rows.Next() {
		a := &model.PurchaseAttempt{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.PlanID, &a.IntentID, &a.ClientSecret, &a.State,
			&a.CreditsExpected, &a.FailureCode, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
