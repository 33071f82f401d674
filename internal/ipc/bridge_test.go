package ipc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beequen/beequen/internal/core"
)

func TestBridge_Invoke(t *testing.T) {
	b := NewBridge(nil)
	b.Handle("echo", func(_ context.Context, args Args) (any, error) {
		return args.String(0)
	})

	args, err := NewArgs("hello")
	require.NoError(t, err)
	got, err := b.Invoke(context.Background(), "echo", args)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = b.Invoke(context.Background(), "missing", nil)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
	assert.Equal(t, core.CodeUnknownChannel, core.CodeOf(err))
}

func TestBridge_Channels(t *testing.T) {
	b := NewBridge(nil)
	for _, name := range []string{"b", "c", "a"} {
		b.Handle(name, func(context.Context, Args) (any, error) { return nil, nil })
	}
	assert.Equal(t, []string{"a", "b", "c"}, b.Channels())
}

func TestArgs(t *testing.T) {
	args := Args{
		json.RawMessage(`"select 1"`),
		json.RawMessage(`""`),
		json.RawMessage(`null`),
		json.RawMessage(`7`),
		json.RawMessage(`{"projectId":"p"}`),
	}

	s, err := args.String(0)
	require.NoError(t, err)
	assert.Equal(t, "select 1", s)

	_, err = args.String(1)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation), "empty string")

	_, err = args.String(2)
	assert.Equal(t, "argument 2: missing", core.MessageOf(err))

	_, err = args.String(3)
	assert.Equal(t, core.CodeInvalidArgument, core.CodeOf(err), "wrong type")

	_, err = args.String(9)
	assert.Error(t, err, "out of range")

	opt, err := args.OptionalString(2)
	require.NoError(t, err)
	assert.Empty(t, opt)

	n, err := args.OptionalInt(3, 50)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	n, err = args.OptionalInt(8, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	var m map[string]string
	require.NoError(t, args.Decode(4, &m))
	assert.Equal(t, "p", m["projectId"])

	assert.True(t, args.Has(0))
	assert.False(t, args.Has(2))
	assert.False(t, args.Has(5))
}
