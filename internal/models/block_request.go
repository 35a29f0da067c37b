package models

import "time"

// BlockRequestStatus is the state of a block request. APPROVED and REJECTED
// are terminal.
type BlockRequestStatus string

const (
	BlockRequestPending  BlockRequestStatus = "PENDING"
	BlockRequestApproved BlockRequestStatus = "APPROVED"
	BlockRequestRejected BlockRequestStatus = "REJECTED"
)

// BlockRequest is a user's request to block one of their cards, awaiting an
// administrator decision. ProcessedBy, ProcessedAt and AdminComment are set
// only on the transition out of PENDING.
type BlockRequest struct {
	ID           int64              `json:"id"`
	CardID       int64              `json:"card_id"`
	UserID       int64              `json:"user_id"`
	Reason       string             `json:"reason"`
	Status       BlockRequestStatus `json:"status"`
	ProcessedBy  *int64             `json:"processed_by,omitempty"`
	ProcessedAt  *time.Time         `json:"processed_at,omitempty"`
	AdminComment *string            `json:"admin_comment,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// IsPending reports whether the request still awaits a decision.
func (r *BlockRequest) IsPending() bool {
	return r.Status == BlockRequestPending
}
