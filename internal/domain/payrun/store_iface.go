package payrun

import (
	"context"

	"payadmin/internal/domain/approval"
)

type StoreAPI interface {
	Insert(ctx context.Context, tenantID string, run Payrun) (string, error)
	GetByID(ctx context.Context, tenantID, payrunID string) (Payrun, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]Payrun, int, error)
	// ReplacePayItems swaps the full item set for a payrun in one
	// transaction. Recalculation never leaves a partial mix of old and new
	// rows behind.
	ReplacePayItems(ctx context.Context, tenantID, payrunID string, items []PayItem) error
	ListPayItems(ctx context.Context, tenantID, payrunID string) ([]PayItem, error)
	CountPayItems(ctx context.Context, tenantID, payrunID string) (int, error)
	SetPayslipURL(ctx context.Context, tenantID, payItemID, url string) error
	SetStatus(ctx context.Context, tenantID, payrunID string, status approval.PayrunStatus) error
}
