// Package redis keeps the workflow collection as a single JSON value in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// DefaultKey is used when no key is configured
const DefaultKey = "approval-engine:workflows"

type document struct {
	Version   uint64             `json:"version"`
	Workflows []*entity.Workflow `json:"workflows"`
}

// Store implements port.WorkflowStore. Save uses WATCH/MULTI so that a
// concurrent writer on any process aborts the transaction.
type Store struct {
	client *redis.Client
	key    string
	seed   func() []*entity.Workflow
}

// Option configures the store
type Option func(*Store)

// WithSeed makes Load return seed() while the key does not exist
func WithSeed(seed func() []*entity.Workflow) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// WithKey overrides DefaultKey
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore wraps an existing client. Close closes the client.
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the collection
func (s *Store) Load(ctx context.Context) (*port.Snapshot, error) {
	doc, err := read(ctx, s.client, s.key)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		var workflows []*entity.Workflow
		if s.seed != nil {
			workflows = s.seed()
		}
		return &port.Snapshot{Version: 0, Workflows: workflows}, nil
	}
	return &port.Snapshot{Version: doc.Version, Workflows: doc.Workflows}, nil
}

// Save replaces the value when its version still equals expectedVersion
func (s *Store) Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error) {
	if workflows == nil {
		workflows = []*entity.Workflow{}
	}
	next := document{Version: expectedVersion + 1, Workflows: workflows}
	payload, err := json.Marshal(next)
	if err != nil {
		return 0, fmt.Errorf("encode workflows: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := read(ctx, tx, s.key)
		if err != nil {
			return err
		}

		var stored uint64
		if current != nil {
			stored = current.Version
		}
		if stored != expectedVersion {
			return fmt.Errorf("%w: expected %d, stored %d", entity.ErrVersionConflict, expectedVersion, stored)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}, s.key)

	if errors.Is(err, redis.TxFailedErr) {
		return 0, fmt.Errorf("%w: %s changed during save", entity.ErrVersionConflict, s.key)
	}
	if err != nil {
		return 0, err
	}
	return next.Version, nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// read returns nil when the key does not exist
func read(ctx context.Context, c redis.Cmdable, key string) (*document, error) {
	b, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc.Workflows == nil {
		doc.Workflows = []*entity.Workflow{}
	}
	for _, w := range doc.Workflows {
		if w == nil {
			return nil, fmt.Errorf("decode %s: null workflow entry", key)
		}
		if w.Actions == nil {
			w.Actions = []entity.WorkflowAction{}
		}
		if err := w.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return &doc, nil
}

var _ port.WorkflowStore = (*Store)(nil)
