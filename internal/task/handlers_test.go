package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := make(Registry)
	RegisterEcho(r)

	handler, err := r.Lookup(OperationEcho)
	require.NoError(t, err)

	out, err := handler(context.Background(), Args{json.RawMessage(`[1,2]`)})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1,2]`), out)

	_, err = handler(context.Background(), Args{})
	assert.Error(t, err, "echo requires exactly one argument")

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	assert.Panics(t, func() { RegisterEcho(r) }, "duplicate registration")
	assert.Panics(t, func() { r.Register("", echo) }, "empty name")
	assert.Panics(t, func() { r.Register("nil", nil) }, "nil handler")
}

func TestHandlers(t *testing.T) {
	workerInit := Handlers(RegisterEcho, func(r Registry) {
		r.Register("noop", func(context.Context, Args) (any, error) { return nil, nil })
	})

	first, err := workerInit(1)
	require.NoError(t, err)
	second, err := workerInit(2)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Contains(t, first, OperationEcho)
	assert.Contains(t, first, "noop")

	// Every worker gets its own table
	delete(first, "noop")
	assert.Contains(t, second, "noop")
}
