package jobs

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ID string `json:"id"`
}

func TestNewTaskAndDecode(t *testing.T) {
	task, err := NewTask("sample:run", samplePayload{ID: "42"}, asynq.Queue(QueueLow))
	require.NoError(t, err)
	assert.Equal(t, "sample:run", task.Type())

	var decoded samplePayload
	require.NoError(t, DecodePayload(task, &decoded))
	assert.Equal(t, "42", decoded.ID)
}

func TestDecodePayload_SkipsRetryOnGarbage(t *testing.T) {
	task := asynq.NewTask("sample:run", []byte("{"))

	var decoded samplePayload
	err := DecodePayload(task, &decoded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
