package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// TableDDL creates the audit trail table and its indexes
const TableDDL = `
CREATE TABLE IF NOT EXISTS chapter_admin_audit_log (
	id BIGSERIAL PRIMARY KEY,
	timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
	event_type VARCHAR(64) NOT NULL,
	actor_id VARCHAR(255) NOT NULL,
	target_user_id VARCHAR(255),
	school_id VARCHAR(255) NOT NULL,
	assignment_id VARCHAR(64),
	request_id VARCHAR(100),
	message TEXT,
	changes JSONB
);

CREATE INDEX IF NOT EXISTS idx_chapter_admin_audit_school ON chapter_admin_audit_log(school_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_chapter_admin_audit_target ON chapter_admin_audit_log(target_user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_chapter_admin_audit_timestamp ON chapter_admin_audit_log(timestamp);
`

// DBLogger writes audit events to PostgreSQL
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database audit logger, creating the table if needed
func NewDBLogger(ctx context.Context, db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if _, err := db.ExecContext(ctx, TableDDL); err != nil {
		return nil, fmt.Errorf("failed to ensure chapter_admin_audit_log table: %w", err)
	}
	return &DBLogger{db: db}, nil
}

// Log inserts the event and sets its ID
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	Stamp(ctx, event)

	var changesJSON []byte
	if event.Changes != nil {
		var err error
		changesJSON, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("failed to marshal changes: %w", err)
		}
	}

	query := `
		INSERT INTO chapter_admin_audit_log (
			timestamp, event_type, actor_id, target_user_id, school_id,
			assignment_id, request_id, message, changes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := l.db.QueryRowContext(ctx, query,
		event.Timestamp, string(event.EventType), event.ActorID,
		nullString(event.TargetUserID), event.SchoolID, nullString(event.AssignmentID),
		nullString(event.RequestID), event.Message, changesJSON,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List returns matching events, newest first
func (l *DBLogger) List(ctx context.Context, filter Filter) ([]*Event, error) {
	query := `
		SELECT id, timestamp, event_type, actor_id, target_user_id, school_id,
			assignment_id, request_id, message, changes
		FROM chapter_admin_audit_log
		WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filter.SchoolID != "" {
		query += fmt.Sprintf(" AND school_id = $%d", argCount)
		args = append(args, filter.SchoolID)
		argCount++
	}
	if filter.TargetUserID != "" {
		query += fmt.Sprintf(" AND target_user_id = $%d", argCount)
		args = append(args, filter.TargetUserID)
		argCount++
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			types[i] = string(et)
		}
		query += fmt.Sprintf(" AND event_type = ANY($%d)", argCount)
		args = append(args, pq.Array(types))
		argCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *filter.Since)
		argCount++
	}
	if filter.Before != nil {
		query += fmt.Sprintf(" AND timestamp < $%d", argCount)
		args = append(args, *filter.Before)
		argCount++
	}

	query += " ORDER BY timestamp DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		var event Event
		var targetUserID, assignmentID, requestID, message sql.NullString
		var changesJSON []byte
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.EventType, &event.ActorID, &targetUserID,
			&event.SchoolID, &assignmentID, &requestID, &message, &changesJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.TargetUserID = targetUserID.String
		event.AssignmentID = assignmentID.String
		event.RequestID = requestID.String
		event.Message = message.String
		if len(changesJSON) > 0 {
			event.Changes = &ChangeDetails{}
			if err := json.Unmarshal(changesJSON, event.Changes); err != nil {
				return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
			}
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}
	return events, nil
}

// Purge deletes every event older than before and returns how many went
func (l *DBLogger) Purge(ctx context.Context, before time.Time) (int64, error) {
	result, err := l.db.ExecContext(ctx,
		`DELETE FROM chapter_admin_audit_log WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit log: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged audit events: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
