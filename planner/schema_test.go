package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidatorAcceptsValidPlan(t *testing.T) {
	sv, err := newSchemaValidator()
	require.NoError(t, err)

	raw := []byte(`{"tasks":[{"id":"t1","description":"write code","capabilities":["code_generation"]},{"id":"t2","description":"run it","capabilities":["system_operations"],"dependencies":["t1"]}]}`)
	sp, err := sv.decodeStructuredPlan(raw)
	require.NoError(t, err)
	assert.Len(t, sp.Tasks, 2)
	assert.Equal(t, "t1", sp.Tasks[0].ID)
	assert.Equal(t, []string{"t1"}, sp.Tasks[1].Dependencies)
}

func TestSchemaValidatorRejectsMissingFields(t *testing.T) {
	sv, err := newSchemaValidator()
	require.NoError(t, err)

	_, err = sv.decodeStructuredPlan([]byte(`{"tasks":[{"id":"t1"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestSchemaValidatorRejectsNonJSON(t *testing.T) {
	sv, err := newSchemaValidator()
	require.NoError(t, err)

	_, err = sv.decodeStructuredPlan([]byte(`not json at all`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestSchemaValidatorRejectsTooManyTasks(t *testing.T) {
	sv, err := newSchemaValidator()
	require.NoError(t, err)

	raw := `{"tasks":[`
	for i := 0; i < 9; i++ {
		if i > 0 {
			raw += ","
		}
		raw += `{"id":"t","description":"d","capabilities":["x"]}`
	}
	raw += `]}`

	_, err = sv.decodeStructuredPlan([]byte(raw))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
