// Package sqlite stores the workflow collection in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/pkg/database"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store implements port.WorkflowStore. The collection version lives in
// collection_meta and every Save rewrites all rows inside one transaction.
type Store struct {
	db     *database.DB
	tx     *TxManager
	seed   func() []*entity.Workflow
	logger *zap.Logger
}

// Option configures the store
type Option func(*Store)

// WithSeed makes Load return seed() until the first successful Save
func WithSeed(seed func() []*entity.Workflow) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// Open connects to the database described by cfg and applies pending migrations
func Open(ctx context.Context, cfg database.Config, logger *zap.Logger, opts ...Option) (*Store, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(ctx, migrationFS, "migrations"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		tx:     NewTxManager(db.DB, logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load reads the collection in stored order
func (s *Store) Load(ctx context.Context) (*port.Snapshot, error) {
	var snap *port.Snapshot
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		version, found, err := s.version(ctx)
		if err != nil {
			return err
		}
		if !found {
			var workflows []*entity.Workflow
			if s.seed != nil {
				workflows = s.seed()
			}
			snap = &port.Snapshot{Version: 0, Workflows: workflows}
			return nil
		}

		workflows, err := s.loadWorkflows(ctx)
		if err != nil {
			return err
		}
		snap = &port.Snapshot{Version: version, Workflows: workflows}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Save replaces all rows when expectedVersion matches collection_meta
func (s *Store) Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error) {
	next := expectedVersion + 1
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.bumpVersion(ctx, expectedVersion); err != nil {
			return err
		}

		exec := s.tx.executor(ctx)
		if _, err := exec.ExecContext(ctx, "DELETE FROM workflow_actions"); err != nil {
			return fmt.Errorf("clear actions: %w", err)
		}
		if _, err := exec.ExecContext(ctx, "DELETE FROM workflows"); err != nil {
			return fmt.Errorf("clear workflows: %w", err)
		}

		for i, w := range workflows {
			if err := s.insertWorkflow(ctx, i, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Saved workflows", zap.Uint64("version", next), zap.Int("count", len(workflows)))
	return next, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) version(ctx context.Context) (uint64, bool, error) {
	var version uint64
	err := s.tx.executor(ctx).QueryRowContext(ctx,
		"SELECT version FROM collection_meta WHERE id = 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read collection version: %w", err)
	}
	return version, true, nil
}

// bumpVersion is the compare-and-swap on collection_meta
func (s *Store) bumpVersion(ctx context.Context, expected uint64) error {
	exec := s.tx.executor(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		result sql.Result
		err    error
	)
	if expected == 0 {
		result, err = exec.ExecContext(ctx,
			"INSERT OR IGNORE INTO collection_meta (id, version, updated_at) VALUES (1, 1, ?)", now)
	} else {
		result, err = exec.ExecContext(ctx,
			"UPDATE collection_meta SET version = version + 1, updated_at = ? WHERE id = 1 AND version = ?",
			now, expected)
	}
	if err != nil {
		return fmt.Errorf("update collection version: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update collection version: %w", err)
	}
	if affected == 1 {
		return nil
	}

	stored, _, err := s.version(ctx)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: expected %d, stored %d", entity.ErrVersionConflict, expected, stored)
}

func (s *Store) insertWorkflow(ctx context.Context, position int, w *entity.Workflow) error {
	exec := s.tx.executor(ctx)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO workflows (
			id, position, title, description, category, status, priority,
			requester_id, requester_name, approver_id, approver_name,
			created_at, updated_at, due_date, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, position, w.Title, w.Description, w.Category, string(w.Status), string(w.Priority),
		w.RequesterID, w.RequesterName, nullString(w.ApproverID), nullString(w.ApproverName),
		string(w.CreatedAt), string(w.UpdatedAt), nullString(string(w.DueDate)), w.Version,
	)
	if err != nil {
		return fmt.Errorf("insert workflow %s: %w", w.ID, err)
	}

	for seq, a := range w.Actions {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO workflow_actions (workflow_id, seq, action, actor_id, actor_name, timestamp, comment)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			w.ID, seq, string(a.Action), a.ActorID, a.ActorName,
			a.Timestamp.UTC().Format(time.RFC3339Nano), a.Comment,
		)
		if err != nil {
			return fmt.Errorf("insert action %d of %s: %w", seq, w.ID, err)
		}
	}
	return nil
}

func (s *Store) loadWorkflows(ctx context.Context) ([]*entity.Workflow, error) {
	exec := s.tx.executor(ctx)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, title, description, category, status, priority,
		       requester_id, requester_name, approver_id, approver_name,
		       created_at, updated_at, due_date, version
		FROM workflows ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	workflows := []*entity.Workflow{}
	byID := make(map[string]*entity.Workflow)
	for rows.Next() {
		var (
			w                                  entity.Workflow
			status, priority, created, updated string
			approverID, approverName, dueDate  sql.NullString
		)
		if err := rows.Scan(
			&w.ID, &w.Title, &w.Description, &w.Category, &status, &priority,
			&w.RequesterID, &w.RequesterName, &approverID, &approverName,
			&created, &updated, &dueDate, &w.Version,
		); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		w.Status = entity.Status(status)
		w.Priority = entity.Priority(priority)
		w.ApproverID = approverID.String
		w.ApproverName = approverName.String
		w.CreatedAt = entity.Date(created)
		w.UpdatedAt = entity.Date(updated)
		w.DueDate = entity.Date(dueDate.String)
		w.Actions = []entity.WorkflowAction{}

		workflows = append(workflows, &w)
		byID[w.ID] = &w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflows: %w", err)
	}

	if err := s.attachActions(ctx, byID); err != nil {
		return nil, err
	}
	for _, w := range workflows {
		if err := w.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("load workflows: %w", err)
		}
	}
	return workflows, nil
}

func (s *Store) attachActions(ctx context.Context, byID map[string]*entity.Workflow) error {
	rows, err := s.tx.executor(ctx).QueryContext(ctx, `
		SELECT workflow_id, action, actor_id, actor_name, timestamp, comment
		FROM workflow_actions ORDER BY workflow_id, seq`)
	if err != nil {
		return fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			workflowID, action, ts string
			a                      entity.WorkflowAction
		)
		if err := rows.Scan(&workflowID, &action, &a.ActorID, &a.ActorName, &ts, &a.Comment); err != nil {
			return fmt.Errorf("scan action: %w", err)
		}
		a.Action = entity.ActionType(action)
		if a.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return fmt.Errorf("action timestamp of %s: %w", workflowID, err)
		}

		if w, ok := byID[workflowID]; ok {
			w.Actions = append(w.Actions, a)
		}
	}
	return rows.Err()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

var _ port.WorkflowStore = (*Store)(nil)
