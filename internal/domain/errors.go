package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrEmailTaken              = errors.New("email already registered")
	ErrTransactionTerminal     = errors.New("transaction already in terminal state")
	ErrWalletNotLocked         = errors.New("wallet not locked in this unit of work")

	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrWalletInactive         = errors.New("wallet is not active")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrSelfTransferNotAllowed = errors.New("cannot transfer to yourself")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAmountLimitExceeded    = errors.New("amount exceeds transaction limit")
	ErrMissingIdempotencyKey  = errors.New("idempotency key is required")
)

// Role-specific variants still match ErrWalletInactive with errors.Is.
var (
	ErrSenderWalletInactive    = fmt.Errorf("sender: %w", ErrWalletInactive)
	ErrRecipientWalletInactive = fmt.Errorf("recipient: %w", ErrWalletInactive)
)
