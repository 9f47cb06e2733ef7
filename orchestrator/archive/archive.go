package archive

import (
	"context"
	"fmt"

	"github.com/agentmesh/core/orchestrator"
)

// Store implements orchestrator.Archive by delegating to a Client.
type Store struct {
	client Client
}

var _ orchestrator.Archive = (*Store)(nil)

// NewStore builds a workflow archive backed by the given Client.
func NewStore(client Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("archive: client is required")
	}
	return &Store{client: client}, nil
}

// SaveWorkflow implements orchestrator.Archive.
func (s *Store) SaveWorkflow(ctx context.Context, w *orchestrator.Workflow) error {
	if err := s.client.SaveWorkflow(ctx, toDocument(w)); err != nil {
		return fmt.Errorf("archive: save workflow %s: %w", w.ID, err)
	}
	return nil
}

// GetWorkflow returns the archived record for workflowID, or
// orchestrator.ErrWorkflowNotArchived if none exists.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (Record, error) {
	doc, err := s.client.LoadWorkflow(ctx, workflowID)
	if err != nil {
		return Record{}, err
	}
	return fromDocument(doc), nil
}
