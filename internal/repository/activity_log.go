package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
)

const activityLogColumns = `id, user_id, action, entity_type, entity_id, description,
	metadata, ip_address, user_agent, api_endpoint, request_method, created_at`

type ActivityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, log *domain.ActivityLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_logs (
			id, user_id, action, entity_type, entity_id, description,
			metadata, ip_address, user_agent, api_endpoint, request_method, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		log.ID, log.UserID, log.Action, log.EntityType, log.EntityID, log.Description,
		jsonArg(log.Metadata), log.IPAddress, log.UserAgent, log.Endpoint, log.Method, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ActivityLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+activityLogColumns+` FROM activity_logs
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var logs []domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		var uid, entityID uuid.NullUUID
		var metadata *[]byte
		if err := rows.Scan(
			&l.ID, &uid, &l.Action, &l.EntityType, &entityID, &l.Description,
			&metadata, &l.IPAddress, &l.UserAgent, &l.Endpoint, &l.Method, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListByUser: scan: %w", err)
		}
		if uid.Valid {
			l.UserID = &uid.UUID
		}
		if entityID.Valid {
			l.EntityID = &entityID.UUID
		}
		if metadata != nil {
			l.Metadata = *metadata
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return logs, nil
}
