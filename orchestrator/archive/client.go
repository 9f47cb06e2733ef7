// Package archive implements an optional, best-effort MongoDB-backed
// orchestrator.Archive: completed workflows are persisted for later
// inspection, but archival failures never fail a workflow (see
// Orchestrator.archiveBestEffort).
package archive

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/agentmesh/core/orchestrator"
)

const (
	defaultCollection = "workflows"
	defaultTimeout    = 5 * time.Second
	clientName        = "orchestrator-archive-mongo"
)

// Client exposes the Mongo-backed operations the archive needs.
type Client interface {
	health.Pinger

	SaveWorkflow(ctx context.Context, doc workflowDocument) error
	LoadWorkflow(ctx context.Context, workflowID string) (workflowDocument, error)
}

// Options configures the Mongo client implementation.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type client struct {
	mongo   *mongodriver.Client
	coll    *mongodriver.Collection
	timeout time.Duration
}

// NewClient returns a Client backed by the provided MongoDB client.
func NewClient(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collection := opts.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{
		mongo:   opts.Client,
		coll:    opts.Client.Database(opts.Database).Collection(collection),
		timeout: timeout,
	}, nil
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) SaveWorkflow(ctx context.Context, doc workflowDocument) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (c *client) LoadWorkflow(ctx context.Context, workflowID string) (workflowDocument, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var doc workflowDocument
	err := c.coll.FindOne(ctx, bson.M{"_id": workflowID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return workflowDocument{}, orchestrator.ErrWorkflowNotArchived
		}
		return workflowDocument{}, err
	}
	return doc, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
