// Package activity records user-visible audit events. Recording is
// best-effort: a failure is logged and never returned to the caller.
package activity

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

var templates = map[domain.ActivityAction]string{
	domain.ActivityUserRegistered:         "User registered with email {email}",
	domain.ActivityWalletCreated:          "Wallet created for user",
	domain.ActivityWalletDeposit:          "Deposited ${amount} to wallet",
	domain.ActivityWalletWithdrawal:       "Withdrew ${amount} from wallet",
	domain.ActivityWalletWithdrawalFailed: "Withdrawal of ${amount} failed: {reason}",
	domain.ActivityTransferSent:           "Sent ${amount} to {recipient_email}",
	domain.ActivityTransferReceived:       "Received ${amount} from {sender_email}",
	domain.ActivityTransactionCompleted:   "Transaction completed: {transaction_type}",
	domain.ActivityDuplicateBlocked:       "Duplicate request blocked: {idempotency_key}",
}

type Event struct {
	Action     domain.ActivityAction
	EntityType string
	EntityID   uuid.UUID
	Fields     map[string]string
}

type logWriter interface {
	Create(ctx context.Context, log *domain.ActivityLog) error
}

type Recorder struct {
	logs logWriter
	now  func() time.Time
}

func NewRecorder(logs logWriter) *Recorder {
	return &Recorder{logs: logs, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Recorder) Record(ctx context.Context, actor domain.Actor, ev Event) {
	log := logging.FromContext(ctx)

	entry := &domain.ActivityLog{
		ID:          uuid.New(),
		Action:      ev.Action,
		EntityType:  ev.EntityType,
		Description: Describe(ev.Action, ev.Fields),
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		Endpoint:    actor.Endpoint,
		Method:      actor.Method,
		CreatedAt:   r.now(),
	}
	if actor.UserID != uuid.Nil {
		uid := actor.UserID
		entry.UserID = &uid
	}
	if ev.EntityID != uuid.Nil {
		eid := ev.EntityID
		entry.EntityID = &eid
	}
	if len(ev.Fields) > 0 {
		metadata, err := json.Marshal(ev.Fields)
		if err != nil {
			log.Error("activity metadata encode failed", "action", ev.Action, "error", err)
		} else {
			entry.Metadata = metadata
		}
	}

	if err := r.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("activity log write failed",
			"action", ev.Action,
			"user_id", actor.UserID,
			"error", err,
		)
	}
}

// Describe renders the action's template, substituting {name}
// placeholders from fields. Unknown actions fall back to the action name.
func Describe(action domain.ActivityAction, fields map[string]string) string {
	tmpl, ok := templates[action]
	if !ok {
		return strings.ReplaceAll(string(action), "_", " ")
	}
	for k, v := range fields {
		tmpl = strings.ReplaceAll(tmpl, "{"+k+"}", v)
	}
	return tmpl
}
