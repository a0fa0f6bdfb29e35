package blockstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfabric/gateway/internal/profile"
)

func TestStreamer_BlockMode_EmitsOnMinThreshold(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 5, MaxChars: 20, DefaultMode: profile.ModeBlock}

	var blocks []Block
	s := New(p, Options{ProtectCodeFences: true}, Hooks{
		OnBlock: func(b Block) { blocks = append(blocks, b) },
	})

	require.NoError(t, s.Push("hi"))
	assert.Empty(t, blocks, "below MinChars should withhold")

	require.NoError(t, s.Push(" there, friend. More words follow after this sentence."))
	assert.NotEmpty(t, blocks)
	assert.False(t, blocks[0].IsLast)
}

func TestStreamer_BlockMode_Complete_MarksLastAndIsIdempotent(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1000, MaxChars: 2000, DefaultMode: profile.ModeBlock}

	var blocks []Block
	var summaries []CompletedRunSummary
	s := New(p, Options{}, Hooks{
		OnBlock:    func(b Block) { blocks = append(blocks, b) },
		OnComplete: func(c CompletedRunSummary) { summaries = append(summaries, c) },
	})

	require.NoError(t, s.Push("short text"))
	first := s.Complete()
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].IsLast)
	assert.Len(t, summaries, 1)

	second := s.Complete()
	assert.Equal(t, first, second)
	assert.Len(t, summaries, 1, "OnComplete must not fire twice")
	assert.Len(t, blocks, 1, "no extra block on repeated Complete")
}

func TestStreamer_PushAfterComplete_ReturnsErrCompleted(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1, DefaultMode: profile.ModeBlock}
	s := New(p, Options{}, Hooks{})
	s.Complete()
	err := s.Push("more")
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestStreamer_StreamingMode_EmitsFullContentEachPush(t *testing.T) {
	p := profile.Profile{Name: "test", DefaultMode: profile.ModeStreaming}

	var updates []StreamingUpdate
	s := New(p, Options{}, Hooks{
		OnUpdate: func(u StreamingUpdate) { updates = append(updates, u) },
	})

	require.NoError(t, s.Push("Hello"))
	require.NoError(t, s.Push(", world"))
	require.Len(t, updates, 2)
	assert.Equal(t, "Hello", updates[0].FullContent)
	assert.Equal(t, "Hello, world", updates[1].FullContent)
	assert.Equal(t, ", world", updates[1].Delta)
}

func TestStreamer_BatchMode_EmitsOnlyOnComplete(t *testing.T) {
	p := profile.Profile{Name: "test", DefaultMode: profile.ModeBatch}

	var blocks []Block
	s := New(p, Options{}, Hooks{
		OnBlock: func(b Block) { blocks = append(blocks, b) },
	})

	require.NoError(t, s.Push("part one. "))
	require.NoError(t, s.Push("part two."))
	assert.Empty(t, blocks, "batch mode must not emit before Complete")

	s.Complete()
	require.Len(t, blocks, 1)
	assert.Equal(t, "part one. part two.", blocks[0].Content)
	assert.True(t, blocks[0].IsFirst)
	assert.True(t, blocks[0].IsLast)
}

func TestStreamer_ProtectsCodeFenceAcrossPushes(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1, MaxChars: 500, DefaultMode: profile.ModeBlock}

	var blocks []Block
	s := New(p, Options{ProtectCodeFences: true}, Hooks{
		OnBlock: func(b Block) { blocks = append(blocks, b) },
	})

	require.NoError(t, s.Push("intro text.\n```go\nfunc f() {\n"))
	assert.Empty(t, blocks, "must withhold while fence is open")

	require.NoError(t, s.Push("}\n```\nmore text after."))
	require.NotEmpty(t, blocks)
	for _, b := range blocks {
		assert.Equal(t, 0, strings.Count(b.Content, "```")%2, "no block may cut through a code fence")
	}
}

func TestStreamer_Abort_SuppressesOnComplete(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1000, DefaultMode: profile.ModeBlock}

	completeCalled := false
	s := New(p, Options{}, Hooks{
		OnComplete: func(CompletedRunSummary) { completeCalled = true },
	})

	require.NoError(t, s.Push("buffered but never emitted"))
	s.Abort()
	assert.False(t, completeCalled)

	st := s.State()
	assert.True(t, st.IsAborted)
	assert.False(t, st.IsComplete)

	err := s.Push("after abort")
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestStreamer_SetProfile_TransfersUnreadBufferAndPreservesIsFirst(t *testing.T) {
	small := profile.Profile{Name: "small", MinChars: 1000, MaxChars: 2000, DefaultMode: profile.ModeBlock}
	large := profile.Profile{Name: "large", MinChars: 1, MaxChars: 2000, DefaultMode: profile.ModeBlock}

	var blocks []Block
	s := New(small, Options{}, Hooks{
		OnBlock: func(b Block) { blocks = append(blocks, b) },
	})

	// MinChars is high enough that this is withheld, unread, by the
	// original handler.
	require.NoError(t, s.Push("buffered text not yet emitted. "))
	assert.Empty(t, blocks)

	s.SetProfile(large)
	require.NotEmpty(t, blocks, "the unread buffer must be replayed into the new handler")
	assert.Equal(t, "buffered text not yet emitted. ", blocks[0].Content)
	assert.True(t, blocks[0].IsFirst, "the first block emitted for this run is still isFirst")
	assert.Equal(t, 0, blocks[0].Index)

	require.NoError(t, s.Push("more text after the switch, handled under the new profile."))
	require.Len(t, blocks, 2)
	assert.False(t, blocks[1].IsFirst, "isFirst must not repeat after a mid-stream handoff")
	assert.Equal(t, 1, blocks[1].Index, "block indices keep counting across the handoff, never reset")
}

func TestStreamer_Configure_SwitchesModeMidStream(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1, MaxChars: 2000, DefaultMode: profile.ModeBlock}

	var blocks []Block
	var updates []StreamingUpdate
	s := New(p, Options{}, Hooks{
		OnBlock:  func(b Block) { blocks = append(blocks, b) },
		OnUpdate: func(u StreamingUpdate) { updates = append(updates, u) },
	})

	require.NoError(t, s.Push("first chunk of text that clears the minimum. "))
	require.NotEmpty(t, blocks)
	firstBlockCount := len(blocks)

	s.Configure(Options{Mode: profile.ModeStreaming})
	assert.Equal(t, "streaming", s.State().Mode)

	require.NoError(t, s.Push("delta after switching to streaming mode"))
	assert.Len(t, blocks, firstBlockCount, "no new blocks once switched to streaming mode")
	require.NotEmpty(t, updates)
}

func TestStreamer_SetProfile_NoOpAfterComplete(t *testing.T) {
	p := profile.Profile{Name: "test", MinChars: 1, DefaultMode: profile.ModeBlock}
	other := profile.Profile{Name: "other", MinChars: 1, DefaultMode: profile.ModeBatch}

	s := New(p, Options{}, Hooks{})
	require.NoError(t, s.Push("done"))
	s.Complete()

	s.SetProfile(other)
	assert.Equal(t, "block", s.State().Mode, "reconfigure after Complete must be a no-op")
}

func TestStreamer_Stats_TracksInputAndOutputCounts(t *testing.T) {
	p := profile.Profile{Name: "test", DefaultMode: profile.ModeBatch}
	s := New(p, Options{}, Hooks{})

	require.NoError(t, s.Push("12345"))
	s.Complete()

	stats := s.Stats()
	assert.Equal(t, 5, stats.TotalInputChars)
	assert.Equal(t, 1, stats.TotalOutputBlocks)
	assert.Equal(t, 5, stats.TotalOutputChars)
}
