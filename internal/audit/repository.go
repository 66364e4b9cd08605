// Package audit stores and queries the trail of state-changing requests.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/logix-service/internal/service"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timestampLayout is fixed width so created_at sorts lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// AuditLog is one recorded request.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	ClientID  string          `json:"client_id,omitempty"`
	Command   string          `json:"command"`
	Tags      []string        `json:"tags"`
	Details   json.RawMessage `json:"details,omitempty"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter controls which audit logs to return.
type Filter struct {
	Command  string // optional: exact command name
	ClientID string // optional: hex client identity
	Limit    int    // default 50, max 200
	Offset   int
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository persists audit logs in SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new audit log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record stores a successful mutating request. It satisfies service.Auditor.
func (r *SQLiteRepository) Record(ctx context.Context, entry service.AuditEntry) error {
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("marshalling audit result: %w", err)
	}
	return r.Create(ctx, &AuditLog{
		RequestID: entry.RequestID,
		ClientID:  entry.ClientID,
		Command:   entry.Command.String(),
		Tags:      entry.Tags,
		Details:   entry.Msg,
		Result:    result,
	})
}

// Create inserts a new audit log entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()[:8]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.now().UTC()
	}
	if log.Tags == nil {
		log.Tags = []string{}
	}

	tags, err := json.Marshal(log.Tags)
	if err != nil {
		return fmt.Errorf("marshalling audit tags: %w", err)
	}

	var details *string
	if len(log.Details) > 0 {
		s := string(log.Details)
		details = &s
	}

	result := string(log.Result)
	if result == "" {
		result = "null"
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, request_id, client_id, command, tags, details, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.RequestID, log.ClientID, log.Command,
		string(tags), details, result,
		log.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}

	return nil
}

// List returns audit logs matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Command != "" {
		conditions = append(conditions, "command = ?")
		args = append(args, filter.Command)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions
		`SELECT id, request_id, client_id, command, tags, details, result, created_at
		 FROM audit_logs %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanLog(rows *sql.Rows) (AuditLog, error) {
	var log AuditLog
	var tags, result, createdAt string
	var details sql.NullString

	if err := rows.Scan(&log.ID, &log.RequestID, &log.ClientID, &log.Command,
		&tags, &details, &result, &createdAt); err != nil {
		return AuditLog{}, fmt.Errorf("scanning audit log: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &log.Tags); err != nil {
		return AuditLog{}, fmt.Errorf("decoding audit tags for %s: %w", log.ID, err)
	}
	if details.Valid && details.String != "" {
		log.Details = json.RawMessage(details.String)
	}
	log.Result = json.RawMessage(result)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return AuditLog{}, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
	}
	log.CreatedAt = t

	return log, nil
}
