package textbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind_ParagraphBeatsEverythingElse(t *testing.T) {
	text := "First sentence.\n\nSecond line\nthird, clause word"
	pos, kind := Find(text, 1, len(text))
	assert.Equal(t, BreakParagraph, kind)
	assert.Equal(t, "First sentence.\n\n", text[:pos])
}

func TestFind_SentenceBeatsLineAndClause(t *testing.T) {
	text := "One sentence ends here. Then a line\nwith, a clause"
	pos, kind := Find(text, 1, len(text))
	assert.Equal(t, BreakSentence, kind)
	assert.Equal(t, "One sentence ends here. ", text[:pos])
}

func TestFind_LineBeatsClauseAndWord(t *testing.T) {
	text := "no terminators here\nmore, words after"
	pos, kind := Find(text, 1, len(text))
	assert.Equal(t, BreakLine, kind)
	assert.Equal(t, "no terminators here\n", text[:pos])
}

func TestFind_ClauseBeatsWord(t *testing.T) {
	text := "alpha, beta gamma delta"
	pos, kind := Find(text, 1, len(text))
	assert.Equal(t, BreakClause, kind)
	assert.Equal(t, "alpha, ", text[:pos])
}

func TestFind_WordWhenNoPunctuation(t *testing.T) {
	text := "alpha beta gamma delta"
	pos, kind := Find(text, 1, 12)
	assert.Equal(t, BreakWord, kind)
	assert.Equal(t, "alpha ", text[:pos])
}

func TestFind_HardCutWhenNoBreakPointFound(t *testing.T) {
	text := "nobreakpointsatallxxxxxxxxxxxxxxxxxx"
	pos, kind := Find(text, 1, 10)
	assert.Equal(t, BreakHard, kind)
	assert.Equal(t, 10, pos)
}

func TestFind_RespectsMinPosWindow(t *testing.T) {
	// The only newline is before minPos, so it must not be selected even
	// though it would otherwise win as BreakLine.
	text := "a\nbcdefghijklmnop"
	pos, kind := Find(text, 5, len(text))
	assert.NotEqual(t, BreakLine, kind)
	assert.GreaterOrEqual(t, pos, 5)
}

func TestFind_ClampsOutOfRangePositions(t *testing.T) {
	text := "short"
	pos, kind := Find(text, -5, 1000)
	assert.Equal(t, BreakHard, kind)
	assert.Equal(t, len([]rune(text)), pos)
}

func TestBuffer_AppendPeekConsumeClear(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.Len())

	b.Append("hello ")
	b.Append("world")
	assert.Equal(t, "hello world", b.Peek())
	assert.Equal(t, 11, b.Len())

	assert.Equal(t, "hello ", b.PeekRange(0, 6))

	consumed := b.Consume(6)
	assert.Equal(t, "hello ", consumed)
	assert.Equal(t, "world", b.Peek())
	assert.Equal(t, 5, b.Len())

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "", b.Peek())
}

func TestBuffer_ConsumeBeyondLengthTakesEverything(t *testing.T) {
	b := New()
	b.Append("abc")
	assert.Equal(t, "abc", b.Consume(100))
	assert.Equal(t, 0, b.Len())
}

func TestRopeBuffer_MatchesBufferSemantics(t *testing.T) {
	r := NewRope()
	r.Append("hello ")
	r.Append("world")
	assert.Equal(t, 11, r.Len())
	assert.Equal(t, "hello world", r.Peek())
	assert.Equal(t, "wor", r.PeekRange(6, 9))

	consumed := r.Consume(6)
	assert.Equal(t, "hello ", consumed)
	assert.Equal(t, "world", r.Peek())
	assert.Equal(t, 5, r.Len())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "", r.Peek())
}
