package service

import "errors"

// Error kinds surfaced to the boundary. Handlers match them with errors.Is and
// map each kind to an HTTP status; none are retried internally.
var (
	// ErrNotFound reports a missing card, user or request.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied reports an ownership or role violation. It is deliberately
	// uninformative: the caller cannot tell a missing card from someone else's.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidOperation reports a violated business rule: same-card transfer,
	// inactive card, wrong CVV, non-pending request transition, duplicate
	// pending block request.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInsufficientFunds reports a debit the balance cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyExists reports a duplicate card number or email.
	ErrAlreadyExists = errors.New("already exists")

	// ErrDecryptFailed reports that a stored secret could not be decrypted.
	// Always fatal to the operation; indicates data corruption or key
	// misconfiguration, never a business condition.
	ErrDecryptFailed = errors.New("decryption failed")
)
