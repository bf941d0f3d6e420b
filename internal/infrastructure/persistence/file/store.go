// Package file persists the workflow collection as one JSON document.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// document is the on-disk layout
type document struct {
	Version   uint64             `json:"version"`
	Workflows []*entity.Workflow `json:"workflows"`
}

// Store implements port.WorkflowStore on top of port.FileStorage.
// Writers in this process are serialised; other processes are detected through the version.
type Store struct {
	files  port.FileStorage
	name   string
	seed   func() []*entity.Workflow
	logger *zap.Logger

	mu sync.Mutex
}

// Option configures the store
type Option func(*Store)

// WithSeed makes Load return seed() while no valid document exists
func WithSeed(seed func() []*entity.Workflow) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// NewStore creates a store that keeps its document at name inside files
func NewStore(files port.FileStorage, name string, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		files:  files,
		name:   name,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored collection. A missing or unreadable document yields
// the seed (or an empty collection) at version zero.
func (s *Store) Load(ctx context.Context) (*port.Snapshot, error) {
	doc, err := s.read(ctx)
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

// Save writes the collection when expectedVersion matches the document on disk
func (s *Store) Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		return 0, err
	}

	var stored uint64
	if current != nil {
		stored = current.Version
	}
	if stored != expectedVersion {
		return 0, fmt.Errorf("%w: expected %d, stored %d", entity.ErrVersionConflict, expectedVersion, stored)
	}

	if workflows == nil {
		workflows = []*entity.Workflow{}
	}
	next := document{Version: stored + 1, Workflows: workflows}
	content, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode workflows: %w", err)
	}

	if err := s.files.Save(ctx, s.name, content); err != nil {
		return 0, fmt.Errorf("write %s: %w", s.name, err)
	}

	return next.Version, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// read decodes the document; it returns nil when there is nothing usable on disk
func (s *Store) read(ctx context.Context) (*document, error) {
	content, err := s.files.Read(ctx, s.name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}

	doc, err := decode(bytes.TrimSpace(content))
	if err != nil {
		s.logger.Warn("Invalid workflows document, using initial data",
			zap.String("path", s.files.GetFullPath(s.name)),
			zap.Error(err))
		return nil, nil
	}

	for _, w := range doc.Workflows {
		if w == nil {
			s.logger.Warn("Workflows document contains null entries, using initial data",
				zap.String("path", s.files.GetFullPath(s.name)))
			return nil, nil
		}
		if w.Actions == nil {
			w.Actions = []entity.WorkflowAction{}
		}
		if err := w.CheckInvariants(); err != nil {
			s.logger.Warn("Workflows document violates record rules, using initial data",
				zap.String("path", s.files.GetFullPath(s.name)),
				zap.Error(err))
			return nil, nil
		}
	}
	return doc, nil
}

func decode(content []byte) (*document, error) {
	// A bare array is the layout written before versioning existed
	if bytes.HasPrefix(content, []byte("[")) {
		var workflows []*entity.Workflow
		if err := json.Unmarshal(content, &workflows); err != nil {
			return nil, err
		}
		return &document{Version: 0, Workflows: workflows}, nil
	}

	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if doc.Workflows == nil {
		return nil, errors.New("document has no workflows array")
	}
	return &doc, nil
}

var _ port.WorkflowStore = (*Store)(nil)
