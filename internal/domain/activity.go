package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActivityUserRegistered         ActivityAction = "user_registered"
	ActivityWalletCreated          ActivityAction = "wallet_created"
	ActivityWalletDeposit          ActivityAction = "wallet_deposit"
	ActivityWalletWithdrawal       ActivityAction = "wallet_withdrawal"
	ActivityWalletWithdrawalFailed ActivityAction = "wallet_withdrawal_failed"
	ActivityTransferSent           ActivityAction = "wallet_transfer_sent"
	ActivityTransferReceived       ActivityAction = "wallet_transfer_received"
	ActivityTransactionCompleted   ActivityAction = "transaction_completed"
	ActivityDuplicateBlocked       ActivityAction = "duplicate_request_blocked"
)

type ActivityLog struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	Action      ActivityAction
	EntityType  string
	EntityID    *uuid.UUID
	Description string
	Metadata    json.RawMessage
	IPAddress   string
	UserAgent   string
	Endpoint    string
	Method      string
	CreatedAt   time.Time
}
