package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMongo starts a disposable mongo:7 container for the test and returns
// a connected client, or skips the test when Docker is unavailable. Mirrors
// the teacher's registry/store/mongo test harness pattern.
func setupMongo(t *testing.T) *mongodriver.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	var (
		container testcontainers.Container
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker not available: %v", r)
			}
		}()
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForLog("Waiting for connections"),
			},
			Started: true,
		})
	}()
	if err != nil {
		t.Skipf("docker not available, skipping mongo-backed test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	mc, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Disconnect(ctx) })
	return mc
}

func TestClientSaveAndLoadWorkflow(t *testing.T) {
	mc := setupMongo(t)
	client, err := NewClient(Options{Client: mc, Database: "agentmesh_test", Timeout: 5 * time.Second})
	require.NoError(t, err)

	doc := workflowDocument{
		ID:           "wf-1",
		OriginalTask: "build something",
		Status:       "completed",
		CreatedAt:    time.Now().UTC(),
		Tasks: []taskDocument{
			{ID: "t1", Description: "write code", Status: "COMPLETED", Result: "def f(): pass"},
		},
	}
	require.NoError(t, client.SaveWorkflow(context.Background(), doc))

	got, err := client.LoadWorkflow(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Equal(t, doc.OriginalTask, got.OriginalTask)
	require.Len(t, got.Tasks, 1)
	require.Equal(t, "def f(): pass", got.Tasks[0].Result)

	require.NoError(t, client.Ping(context.Background()))
}
