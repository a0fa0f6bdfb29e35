package fence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_OpensAndClosesBacktickFence(t *testing.T) {
	tr := New()
	tr.Update("intro\n```go\ncode here\n")
	assert.True(t, tr.IsOpen())
	assert.Equal(t, KindBacktick, tr.OpenKind())
	assert.Equal(t, "go", tr.Infostring())

	tr.Update("intro\n```go\ncode here\n```\nafter")
	assert.False(t, tr.IsOpen())
}

func TestTracker_TildeFenceDoesNotCloseOnBacktick(t *testing.T) {
	tr := New()
	tr.Update("~~~python\n")
	assert.True(t, tr.IsOpen())
	assert.Equal(t, KindTilde, tr.OpenKind())

	tr.Update("~~~python\n```\nstill open\n")
	assert.True(t, tr.IsOpen(), "a ``` marker must not close a ~~~ fence")
}

func TestTracker_MarkerMustStartLineAfterWhitespace(t *testing.T) {
	tr := New()
	tr.Update("this has ``` inline, not a fence\n")
	assert.False(t, tr.IsOpen())

	tr.Update("this has ``` inline, not a fence\n   ```\nopen now\n")
	assert.True(t, tr.IsOpen(), "leading whitespace before the marker is allowed")
}

func TestTracker_ClosingLineWithTrailingTextDoesNotClose(t *testing.T) {
	tr := New()
	tr.Update("```go\ncode\n``` trailing text\nmore code\n")
	assert.True(t, tr.IsOpen(), "a marker followed by non-whitespace does not close the fence")
}

func TestTracker_Reset(t *testing.T) {
	tr := New()
	tr.Update("```go\nopen\n")
	assert.True(t, tr.IsOpen())

	tr.Reset("plain text, no fence")
	assert.False(t, tr.IsOpen())
	assert.Equal(t, "", tr.Infostring())

	tr.Reset("```rust\nstill scanning")
	assert.True(t, tr.IsOpen())
	assert.Equal(t, "rust", tr.Infostring())
}

// TestTracker_MarkerSplitAcrossUpdateCalls reproduces the scenario a
// token-by-token stream produces: the opening fence marker itself is split
// across two Update calls, on the still-growing trailing line. The second
// call must rescan that whole line, not just the newly appended suffix, or
// the marker is never recognized.
func TestTracker_MarkerSplitAcrossUpdateCalls(t *testing.T) {
	tr := New()

	tr.Update("abc\n```")
	assert.True(t, tr.IsOpen(), "the unterminated trailing line is scanned tentatively, so the marker already opens the fence")

	tr.Update("abc\n```day\n")
	assert.True(t, tr.IsOpen(), "the full trailing line must be rescanned once it's available")
	assert.Equal(t, KindBacktick, tr.OpenKind())
	assert.Equal(t, "day", tr.Infostring())
}

func TestTracker_MarkerSplitAcrossManyUpdateCalls(t *testing.T) {
	tr := New()
	tr.Update("x\n")
	tr.Update("x\n`")
	tr.Update("x\n``")
	tr.Update("x\n```")
	tr.Update("x\n```js")
	assert.True(t, tr.IsOpen(), "the still-unterminated line is scanned tentatively")

	tr.Update("x\n```js\n")
	assert.True(t, tr.IsOpen())
	assert.Equal(t, "js", tr.Infostring())
}

func TestTracker_IncrementalScanDoesNotRescanCommittedLines(t *testing.T) {
	tr := New()
	tr.Update("```go\n")
	assert.True(t, tr.IsOpen())

	// Appending more closed, newline-terminated lines must not reopen or
	// otherwise disturb fence state derived from the already-committed
	// opening line.
	tr.Update("```go\nline two\nline three\n")
	assert.True(t, tr.IsOpen())
	assert.Equal(t, "go", tr.Infostring())
}
