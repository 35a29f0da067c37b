package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the status of a transfer record. Only completed transfers
// are persisted; the ledger is append-only.
type TransferStatus string

const TransferStatusCompleted TransferStatus = "COMPLETED"

// Transfer is an immutable record of one completed money movement.
type Transfer struct {
	ID           int64           `json:"id"`
	Reference    string          `json:"reference"`
	FromCardID   int64           `json:"from_card_id"`
	ToCardID     int64           `json:"to_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       TransferStatus  `json:"status"`
	Description  string          `json:"description,omitempty"`
	TransferDate time.Time       `json:"transfer_date"`
}
