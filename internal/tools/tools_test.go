package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "echoes its input" }
func (echoTool) ParamName() string   { return "text" }
func (echoTool) Execute(_ context.Context, input string) string {
	return "echo: " + input
}

func TestRegistryExecuteDispatches(t *testing.T) {
	r := NewRegistry(echoTool{})
	out := r.Execute(context.Background(), "echo", []byte(`{"text":"hi"}`))
	require.Equal(t, "echo: hi", out)
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	r := NewRegistry(echoTool{})
	out := r.Execute(context.Background(), "missing", []byte(`{}`))
	require.Contains(t, out, "unknown tool")
}

func TestRegistryExecuteMalformedArgs(t *testing.T) {
	r := NewRegistry(echoTool{})
	out := r.Execute(context.Background(), "echo", []byte(`not json`))
	require.Contains(t, out, "could not parse arguments")
}

func TestRegistrySchemasIncludeParam(t *testing.T) {
	r := NewRegistry(echoTool{})
	schemas := r.Schemas()
	require.Len(t, schemas, 1)
	require.Equal(t, "echo", schemas[0].Name)
	props, ok := schemas[0].Parameters["properties"].(map[string]any)
	require.True(t, ok)
	_, hasText := props["text"]
	require.True(t, hasText)
}
