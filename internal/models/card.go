package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle status of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Card represents a bank card account. The card number and CVV are held
// only in encrypted form; MaskedNumber is derived for display and never stored.
type Card struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	EncryptedNumber string          `json:"-"`
	MaskedNumber    string          `json:"masked_number,omitempty"`
	Holder          string          `json:"holder"`
	ExpirationDate  time.Time       `json:"expiration_date"`
	EncryptedCVV    string          `json:"-"`
	Balance         decimal.Decimal `json:"balance"`
	Status          CardStatus      `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive reports whether the card can take part in transfers.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}

// CanDebit reports whether a debit of amount is allowed: the card must be
// ACTIVE and the balance must cover the amount.
func (c *Card) CanDebit(amount decimal.Decimal) bool {
	if !c.IsActive() {
		return false
	}
	return c.Balance.GreaterThanOrEqual(amount)
}

// Debit decreases the balance by amount if CanDebit holds. It returns false
// when the business rule fails, leaving the balance unchanged, so callers can
// tell a rule failure apart from an unexpected error.
func (c *Card) Debit(amount decimal.Decimal) bool {
	if amount.Sign() <= 0 {
		return false
	}
	if !c.CanDebit(amount) {
		return false
	}
	c.Balance = c.Balance.Sub(amount)
	return true
}

// Credit increases the balance by amount. Amount must be positive; whether the
// card should receive funds at all (status policy) is the caller's decision.
func (c *Card) Credit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("credit amount must be positive, got %s", amount)
	}
	c.Balance = c.Balance.Add(amount)
	return nil
}

// Block transitions ACTIVE -> BLOCKED. EXPIRED is terminal.
func (c *Card) Block() error {
	if c.Status != CardStatusActive {
		return fmt.Errorf("cannot block card in %s status", c.Status)
	}
	c.Status = CardStatusBlocked
	return nil
}

// Activate transitions BLOCKED -> ACTIVE. EXPIRED is terminal.
func (c *Card) Activate() error {
	if c.Status != CardStatusBlocked {
		return fmt.Errorf("cannot activate card in %s status", c.Status)
	}
	c.Status = CardStatusActive
	return nil
}

// ExpiredAt reports whether the card's expiration date has passed.
func (c *Card) ExpiredAt(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}
