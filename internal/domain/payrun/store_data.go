package payrun

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"payadmin/internal/domain/approval"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Insert(ctx context.Context, tenantID string, run Payrun) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO payruns (tenant_id, pay_group_id, period_start, period_end, status, currency)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, tenantID, run.PayGroupID, run.PeriodStart, run.PeriodEnd, run.Status, run.Currency).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetByID(ctx context.Context, tenantID, payrunID string) (Payrun, error) {
	var run Payrun
	err := s.DB.QueryRow(ctx, `
    SELECT id, pay_group_id, period_start, period_end, status, currency, created_at, updated_at
    FROM payruns
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, payrunID).Scan(&run.ID, &run.PayGroupID, &run.PeriodStart, &run.PeriodEnd,
		&run.Status, &run.Currency, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payrun{}, ErrPayrunNotFound
	}
	if err != nil {
		return Payrun{}, err
	}
	return run, nil
}

func (s *Store) List(ctx context.Context, tenantID string, limit, offset int) ([]Payrun, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM payruns WHERE tenant_id = $1
  `, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, pay_group_id, period_start, period_end, status, currency, created_at, updated_at
    FROM payruns
    WHERE tenant_id = $1
    ORDER BY period_start DESC, created_at DESC
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []Payrun
	for rows.Next() {
		var run Payrun
		if err := rows.Scan(&run.ID, &run.PayGroupID, &run.PeriodStart, &run.PeriodEnd,
			&run.Status, &run.Currency, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, nil
}

func (s *Store) ReplacePayItems(ctx context.Context, tenantID, payrunID string, items []PayItem) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
    DELETE FROM pay_items WHERE tenant_id = $1 AND payrun_id = $2
  `, tenantID, payrunID); err != nil {
		return err
	}

	for _, item := range items {
		linesJSON, err := json.Marshal(item.Deductions)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO pay_items (id, tenant_id, payrun_id, employee_id, gross, deductions,
                             total_deductions, net, employer_contributions, created_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, item.ID, tenantID, payrunID, item.EmployeeID, item.Gross, linesJSON,
			item.TotalDeductions, item.Net, item.EmployerContributions, item.CreatedAt); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
    UPDATE payruns SET updated_at = now() WHERE tenant_id = $1 AND id = $2
  `, tenantID, payrunID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListPayItems(ctx context.Context, tenantID, payrunID string) ([]PayItem, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, payrun_id, employee_id, gross, deductions, total_deductions, net,
           employer_contributions, COALESCE(file_url, ''), created_at
    FROM pay_items
    WHERE tenant_id = $1 AND payrun_id = $2
    ORDER BY employee_id
  `, tenantID, payrunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PayItem
	for rows.Next() {
		var item PayItem
		var linesJSON []byte
		if err := rows.Scan(&item.ID, &item.PayrunID, &item.EmployeeID, &item.Gross, &linesJSON,
			&item.TotalDeductions, &item.Net, &item.EmployerContributions, &item.PayslipURL,
			&item.CreatedAt); err != nil {
			return nil, err
		}
		if len(linesJSON) > 0 {
			if err := json.Unmarshal(linesJSON, &item.Deductions); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) CountPayItems(ctx context.Context, tenantID, payrunID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM pay_items WHERE tenant_id = $1 AND payrun_id = $2
  `, tenantID, payrunID).Scan(&count)
	return count, err
}

func (s *Store) SetPayslipURL(ctx context.Context, tenantID, payItemID, url string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE pay_items SET file_url = $3 WHERE tenant_id = $1 AND id = $2
  `, tenantID, payItemID, url)
	return err
}

func (s *Store) SetStatus(ctx context.Context, tenantID, payrunID string, status approval.PayrunStatus) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE payruns SET status = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2
  `, tenantID, payrunID, status)
	return err
}
