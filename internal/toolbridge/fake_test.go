package toolbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeBridge_ListAndCallTool(t *testing.T) {
	bridge := &FakeBridge{
		Tools: []ToolDescriptor{{Name: "echo", Description: "echoes input"}},
		Results: map[string]ToolResult{
			"echo": {Content: "hi back"},
		},
	}

	tools, err := bridge.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)

	res, err := bridge.CallTool(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "hi back", res.Content)
}

func TestFakeBridge_CallUnknownTool(t *testing.T) {
	bridge := &FakeBridge{Results: map[string]ToolResult{}}
	_, err := bridge.CallTool(context.Background(), "missing", nil)
	assert.Error(t, err)
}
