package toolbridge

import (
	"context"
	"fmt"
)

// FakeBridge is a scripted in-memory Bridge used by tests.
type FakeBridge struct {
	Tools   []ToolDescriptor
	Results map[string]ToolResult
}

func (f *FakeBridge) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	return f.Tools, nil
}

func (f *FakeBridge) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	res, ok := f.Results[name]
	if !ok {
		return ToolResult{}, fmt.Errorf("toolbridge: unknown tool %q", name)
	}
	return res, nil
}
