package core

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrPayGroupNotFound = errors.New("pay group not found")
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees WHERE tenant_id = $1
  `, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, first_name, last_name, email, classification, jurisdiction_code,
           COALESCE(pay_group_id::text, ''), created_at
    FROM employees
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Classification,
			&e.JurisdictionCode, &e.PayGroupID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, nil
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, e Employee, salaryPlain *int64, salaryEnc []byte, overrides map[string]bool) (string, error) {
	overridesJSON, err := json.Marshal(overrides)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, first_name, last_name, email, classification,
                           jurisdiction_code, pay_group_id, salary_plain, salary_enc, rule_overrides)
    VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,'')::uuid,$8,$9,$10)
    RETURNING id
  `, tenantID, e.FirstName, e.LastName, e.Email, e.Classification,
		e.JurisdictionCode, e.PayGroupID, salaryPlain, salaryEnc, overridesJSON).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) EmployeePayData(ctx context.Context, tenantID, payGroupID string) ([]EmployeePayData, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, classification, salary_plain, salary_enc, COALESCE(rule_overrides, '{}'::jsonb)
    FROM employees
    WHERE tenant_id = $1 AND pay_group_id = $2
    ORDER BY id
  `, tenantID, payGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeePayData
	for rows.Next() {
		var d EmployeePayData
		var overridesJSON []byte
		if err := rows.Scan(&d.EmployeeID, &d.Classification, &d.SalaryPlain, &d.SalaryEnc, &overridesJSON); err != nil {
			return nil, err
		}
		if len(overridesJSON) > 0 {
			if err := json.Unmarshal(overridesJSON, &d.RuleOverrides); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) EmployeeName(ctx context.Context, tenantID, employeeID string) (string, string, error) {
	var first, last string
	err := s.DB.QueryRow(ctx, `
    SELECT first_name, last_name FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&first, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrEmployeeNotFound
	}
	if err != nil {
		return "", "", err
	}
	return first, last, nil
}

func (s *Store) ListPayGroups(ctx context.Context, tenantID string) ([]PayGroup, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, jurisdiction_code, pay_frequency, currency,
           COALESCE(approver_levels, '[]'::jsonb), created_at
    FROM pay_groups
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []PayGroup
	for rows.Next() {
		group, err := scanPayGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *Store) PayGroupByID(ctx context.Context, tenantID, payGroupID string) (PayGroup, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, name, jurisdiction_code, pay_frequency, currency,
           COALESCE(approver_levels, '[]'::jsonb), created_at
    FROM pay_groups
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, payGroupID)
	group, err := scanPayGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PayGroup{}, ErrPayGroupNotFound
	}
	return group, err
}

func (s *Store) CreatePayGroup(ctx context.Context, tenantID string, group PayGroup) (string, error) {
	levelsJSON, err := json.Marshal(group.ApproverLevels)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO pay_groups (tenant_id, name, jurisdiction_code, pay_frequency, currency, approver_levels)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, tenantID, group.Name, group.JurisdictionCode, group.PayFrequency, group.Currency, levelsJSON).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayGroup(row rowScanner) (PayGroup, error) {
	var group PayGroup
	var levelsJSON []byte
	if err := row.Scan(&group.ID, &group.Name, &group.JurisdictionCode, &group.PayFrequency,
		&group.Currency, &levelsJSON, &group.CreatedAt); err != nil {
		return PayGroup{}, err
	}
	if len(levelsJSON) > 0 {
		if err := json.Unmarshal(levelsJSON, &group.ApproverLevels); err != nil {
			return PayGroup{}, err
		}
	}
	return group, nil
}
