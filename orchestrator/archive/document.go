package archive

import (
	"time"

	"github.com/agentmesh/core/orchestrator"
)

// workflowDocument is the MongoDB document representation of an
// orchestrator.Workflow.
type workflowDocument struct {
	ID           string         `bson:"_id"`
	OriginalTask string         `bson:"original_task"`
	Status       string         `bson:"status"`
	CreatedAt    time.Time      `bson:"created_at"`
	StartedAt    time.Time      `bson:"started_at,omitempty"`
	EndedAt      time.Time      `bson:"ended_at,omitempty"`
	Tasks        []taskDocument `bson:"tasks"`
}

type taskDocument struct {
	ID            string   `bson:"id"`
	Description   string   `bson:"description"`
	Capabilities  []string `bson:"capabilities,omitempty"`
	Dependencies  []string `bson:"dependencies,omitempty"`
	AssignedAgent string   `bson:"assigned_agent,omitempty"`
	Status        string   `bson:"status"`
	Result        string   `bson:"result,omitempty"`
	Error         string   `bson:"error,omitempty"`
}

func toDocument(w *orchestrator.Workflow) workflowDocument {
	p := w.Plan
	doc := workflowDocument{
		ID:           w.ID,
		OriginalTask: p.OriginalTask,
		Status:       string(p.Status),
		CreatedAt:    w.CreatedAt,
		StartedAt:    p.StartedAt,
		EndedAt:      p.EndedAt,
		Tasks:        make([]taskDocument, 0, len(p.ExecutionOrder)),
	}
	for _, id := range p.ExecutionOrder {
		t := p.Tasks[id]
		doc.Tasks = append(doc.Tasks, taskDocument{
			ID:            t.ID,
			Description:   t.Description,
			Capabilities:  setToSlice(t.RequiredCapabilities),
			Dependencies:  setToSlice(t.Dependencies),
			AssignedAgent: t.AssignedAgent,
			Status:        string(t.Status),
			Result:        t.Result,
			Error:         t.Error,
		})
	}
	return doc
}

func setToSlice(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Record is the flattened, read-only view of an archived workflow. It is
// deliberately not a *orchestrator.Workflow: plan.New re-derives a fresh id
// and re-validates the DAG on construction, neither of which applies to a
// record being read back for inspection rather than re-executed.
type Record struct {
	ID           string
	OriginalTask string
	Status       string
	CreatedAt    time.Time
	StartedAt    time.Time
	EndedAt      time.Time
	Tasks        []TaskRecord
}

// TaskRecord is one archived task's final state.
type TaskRecord struct {
	ID            string
	Description   string
	Capabilities  []string
	Dependencies  []string
	AssignedAgent string
	Status        string
	Result        string
	Error         string
}

func fromDocument(doc workflowDocument) Record {
	rec := Record{
		ID:           doc.ID,
		OriginalTask: doc.OriginalTask,
		Status:       doc.Status,
		CreatedAt:    doc.CreatedAt,
		StartedAt:    doc.StartedAt,
		EndedAt:      doc.EndedAt,
		Tasks:        make([]TaskRecord, 0, len(doc.Tasks)),
	}
	for _, t := range doc.Tasks {
		rec.Tasks = append(rec.Tasks, TaskRecord{
			ID:            t.ID,
			Description:   t.Description,
			Capabilities:  t.Capabilities,
			Dependencies:  t.Dependencies,
			AssignedAgent: t.AssignedAgent,
			Status:        t.Status,
			Result:        t.Result,
			Error:         t.Error,
		})
	}
	return rec
}
