package approval

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) StepPayrunID(ctx context.Context, tenantID, stepID string) (string, error) {
	var payrunID string
	err := s.DB.QueryRow(ctx, `
    SELECT payrun_id
    FROM payrun_approval_steps
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, stepID).Scan(&payrunID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrStepNotFound
	}
	if err != nil {
		return "", err
	}
	return payrunID, nil
}

func (s *Store) LoadSteps(ctx context.Context, tenantID, payrunID string) ([]Step, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, payrun_id, level, status, approver_id,
           actioned_at, COALESCE(actioned_by_user_id::text, ''),
           COALESCE(comments, ''), COALESCE(delegated_by_user_id::text, ''),
           created_at
    FROM payrun_approval_steps
    WHERE tenant_id = $1 AND payrun_id = $2 AND superseded_at IS NULL
    ORDER BY level
  `, tenantID, payrunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		if err := rows.Scan(&step.ID, &step.PayrunID, &step.Level, &step.Status, &step.ApproverID,
			&step.ActionedAt, &step.ActionedByUserID, &step.Comments, &step.DelegatedByUserID,
			&step.CreatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (s *Store) InsertSteps(ctx context.Context, tenantID string, steps []Step) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, step := range steps {
		if _, err := tx.Exec(ctx, `
      INSERT INTO payrun_approval_steps (id, tenant_id, payrun_id, level, status, approver_id, created_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, step.ID, tenantID, step.PayrunID, step.Level, step.Status, step.ApproverID, step.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) SupersedeSteps(ctx context.Context, tenantID, payrunID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE payrun_approval_steps
    SET superseded_at = now()
    WHERE tenant_id = $1 AND payrun_id = $2 AND superseded_at IS NULL
  `, tenantID, payrunID)
	return err
}

func (s *Store) HasActiveChain(ctx context.Context, tenantID, payrunID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM payrun_approval_steps
    WHERE tenant_id = $1 AND payrun_id = $2 AND superseded_at IS NULL
  `, tenantID, payrunID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApplyTransition is the single atomic read-modify-write for a step. The
// WHERE status = 'pending' clause is the optimistic-concurrency check: two
// admins approving simultaneously serialize here, and the loser sees
// ErrAlreadyActioned.
func (s *Store) ApplyTransition(ctx context.Context, tenantID string, step Step) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE payrun_approval_steps
    SET status = $1,
        approver_id = $2,
        actioned_at = $3,
        actioned_by_user_id = NULLIF($4, '')::uuid,
        comments = NULLIF($5, ''),
        delegated_by_user_id = NULLIF($6, '')::uuid
    WHERE tenant_id = $7 AND id = $8 AND status = 'pending' AND superseded_at IS NULL
  `, step.Status, step.ApproverID, step.ActionedAt, step.ActionedByUserID,
		step.Comments, step.DelegatedByUserID, tenantID, step.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyActioned
	}
	return nil
}

func (s *Store) UpdatePayrunStatus(ctx context.Context, tenantID, payrunID string, status PayrunStatus) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE payruns
    SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, status, tenantID, payrunID)
	return err
}
