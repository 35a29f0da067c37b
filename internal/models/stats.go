package models

import "github.com/shopspring/decimal"

// CardStats aggregates completed transfers touching one card.
type CardStats struct {
	CardID        int64           `json:"card_id"`
	Income        decimal.Decimal `json:"income"`
	Expense       decimal.Decimal `json:"expense"`
	IncomingCount int64           `json:"incoming_count"`
	OutgoingCount int64           `json:"outgoing_count"`
}

// UserStats aggregates completed transfers across all of a user's cards.
type UserStats struct {
	UserID        int64           `json:"user_id"`
	Income        decimal.Decimal `json:"income"`
	Expense       decimal.Decimal `json:"expense"`
	IncomingCount int64           `json:"incoming_count"`
	OutgoingCount int64           `json:"outgoing_count"`
}
