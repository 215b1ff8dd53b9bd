package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// Repository implements IHistoryRepository using SQL database
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new send-history repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitializeSchema runs history migrations
func (r *Repository) InitializeSchema() error {
	migrations := r.getMigrations()
	for i, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			// Ignore "already exists" errors for idempotent migrations
			if !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
	}
	return nil
}

// getMigrations returns history-specific migrations
func (r *Repository) getMigrations() []string {
	return []string{
		// Migration 1: Send operations table
		`CREATE TABLE IF NOT EXISTS send_operations (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			template_id VARCHAR(64) NOT NULL,
			instance_ids TEXT NOT NULL,
			state VARCHAR(20) NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			sent INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,

		// Migration 2: Per-recipient outcomes, ordered by seq
		`CREATE TABLE IF NOT EXISTS send_outcomes (
			operation_id VARCHAR(36) NOT NULL,
			seq INTEGER NOT NULL,
			phone VARCHAR(50) NOT NULL,
			status INTEGER NOT NULL,
			message TEXT,
			instance_id VARCHAR(64),
			PRIMARY KEY (operation_id, seq)
		)`,

		// Migration 3: Indexes for the listing query
		`CREATE INDEX IF NOT EXISTS idx_send_operations_started ON send_operations(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_send_outcomes_operation ON send_outcomes(operation_id)`,
	}
}

// SaveOperation archives one finished or aborted send in a single transaction
func (r *Repository) SaveOperation(ctx context.Context, op *domainCampaign.SendOperation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO send_operations (id, name, template_id, instance_ids, state, total, sent, failed, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, op.ID.String(), op.Name, op.TemplateID, strings.Join(op.InstanceIDs, ","), string(op.State),
		op.Total, op.Sent, op.Failed, op.Error, op.StartedAt, op.FinishedAt)
	if err != nil {
		return err
	}

	for seq, outcome := range op.Outcomes {
		status := 0
		if outcome.Status {
			status = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO send_outcomes (operation_id, seq, phone, status, message, instance_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, op.ID.String(), seq, outcome.Phone, status, outcome.Message, outcome.InstanceID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetOperation loads one archived operation with its ordered outcome log
func (r *Repository) GetOperation(ctx context.Context, id uuid.UUID) (*domainCampaign.SendOperation, error) {
	op, err := r.scanOperation(r.db.QueryRowContext(ctx, `
		SELECT id, name, template_id, instance_ids, state, total, sent, failed, error, started_at, finished_at
		FROM send_operations WHERE id = ?
	`, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT phone, status, message, instance_id
		FROM send_outcomes WHERE operation_id = ? ORDER BY seq
	`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var outcome domainCampaign.SendOutcome
		var status int
		var message, instanceID sql.NullString
		if err := rows.Scan(&outcome.Phone, &status, &message, &instanceID); err != nil {
			return nil, err
		}
		outcome.Status = status == 1
		outcome.Message = message.String
		outcome.InstanceID = instanceID.String
		op.Outcomes = append(op.Outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return op, nil
}

// ListOperations returns archived operations newest first, without their
// outcome logs
func (r *Repository) ListOperations(ctx context.Context, limit, offset int) ([]*domainCampaign.SendOperation, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM send_operations
	`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, template_id, instance_ids, state, total, sent, failed, error, started_at, finished_at
		FROM send_operations ORDER BY started_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ops []*domainCampaign.SendOperation
	for rows.Next() {
		op, err := r.scanOperation(rows)
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return ops, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOperation(row rowScanner) (*domainCampaign.SendOperation, error) {
	op := &domainCampaign.SendOperation{}
	var idStr, state, instanceIDs string
	var errMsg sql.NullString
	var startedAt, finishedAt time.Time

	err := row.Scan(&idStr, &op.Name, &op.TemplateID, &instanceIDs, &state,
		&op.Total, &op.Sent, &op.Failed, &errMsg, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	op.ID, _ = uuid.Parse(idStr)
	op.State = domainCampaign.SendState(state)
	if instanceIDs != "" {
		op.InstanceIDs = strings.Split(instanceIDs, ",")
	}
	op.Error = errMsg.String
	op.StartedAt = startedAt
	op.FinishedAt = finishedAt
	return op, nil
}
