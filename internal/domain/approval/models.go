package approval

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// PayrunStatus is derived from the step set, never stored as independent
// truth. The payruns table keeps a cached copy refreshed on every transition.
type PayrunStatus string

const (
	PayrunDraft           PayrunStatus = "draft"
	PayrunPendingApproval PayrunStatus = "pending_approval"
	PayrunApproved        PayrunStatus = "approved"
	PayrunRejected        PayrunStatus = "rejected"
)

// Step is one sign-off in a payrun's approval chain. Steps are append-only:
// reconfiguring a chain supersedes the old rows rather than deleting them.
type Step struct {
	ID                string     `json:"id"`
	PayrunID          string     `json:"payrunId"`
	Level             int        `json:"level"`
	Status            Status     `json:"status"`
	ApproverID        string     `json:"approverId"`
	ActionedAt        *time.Time `json:"actionedAt,omitempty"`
	ActionedByUserID  string     `json:"actionedByUserId,omitempty"`
	Comments          string     `json:"comments,omitempty"`
	DelegatedByUserID string     `json:"delegatedByUserId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// LevelAssignment pairs an approval level with its approver.
type LevelAssignment struct {
	Level      int    `json:"level"`
	ApproverID string `json:"approverId"`
}
