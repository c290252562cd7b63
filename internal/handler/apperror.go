package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrDuplicateTransaction    = &AppError{http.StatusConflict, "DUPLICATE_TRANSACTION", "A transaction with this idempotency key already exists"}
	ErrEmailTaken              = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Email is already registered"}
	ErrWalletInactive          = &AppError{http.StatusUnprocessableEntity, "WALLET_INACTIVE", "Wallet is not active"}
	ErrSenderWalletInactive    = &AppError{http.StatusUnprocessableEntity, "SENDER_WALLET_INACTIVE", "Your wallet is not active"}
	ErrRecipientWalletInactive = &AppError{http.StatusUnprocessableEntity, "RECIPIENT_WALLET_INACTIVE", "Recipient wallet is not active"}
	ErrInsufficientBalance     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance"}
	ErrRecipientNotFound       = &AppError{http.StatusUnprocessableEntity, "RECIPIENT_NOT_FOUND", "Recipient not found"}
	ErrSelfTransfer            = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to your own wallet"}
	ErrWalletNotFound          = &AppError{http.StatusNotFound, "WALLET_NOT_FOUND", "Wallet not found"}
	ErrInvalidAmount           = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive with at most 2 decimal places"}
	ErrAmountLimitExceeded     = &AppError{http.StatusBadRequest, "AMOUNT_LIMIT_EXCEEDED", "Amount is outside the allowed transaction range"}
	ErrMissingIdempotencyKey   = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency key is required"}
)
