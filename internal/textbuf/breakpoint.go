package textbuf

import "unicode"

// BreakKind identifies the category of split point a Find call chose.
type BreakKind string

const (
	BreakParagraph BreakKind = "paragraph"
	BreakSentence  BreakKind = "sentence"
	BreakLine      BreakKind = "line"
	BreakClause    BreakKind = "clause"
	BreakWord      BreakKind = "word"
	BreakHard      BreakKind = "hard"
)

// sentenceEnders and clauseEnders are checked against the rune immediately
// before a whitespace run.
var sentenceEnders = map[rune]bool{'.': true, '!': true, '?': true}
var clauseEnders = map[rune]bool{',': true, ';': true, ':': true}

// Find returns the position (and its kind) at which text[0:pos] should be
// cut, searching within [minPos, maxPos]. Priority order: paragraph (double
// newline) > sentence > line (single newline) > clause > word > hard cut at
// maxPos. The first candidate at or after minPos within the window wins.
//
// text is addressed by rune position; minPos/maxPos are clamped to
// [0, len(runes)].
func Find(text string, minPos, maxPos int) (int, BreakKind) {
	runes := []rune(text)
	n := len(runes)
	if minPos < 0 {
		minPos = 0
	}
	if maxPos > n {
		maxPos = n
	}
	if maxPos < minPos {
		maxPos = minPos
	}

	if pos, ok := findParagraph(runes, minPos, maxPos); ok {
		return pos, BreakParagraph
	}
	if pos, ok := findSentence(runes, minPos, maxPos); ok {
		return pos, BreakSentence
	}
	if pos, ok := findLine(runes, minPos, maxPos); ok {
		return pos, BreakLine
	}
	if pos, ok := findClause(runes, minPos, maxPos); ok {
		return pos, BreakClause
	}
	if pos, ok := findWord(runes, minPos, maxPos); ok {
		return pos, BreakWord
	}
	return maxPos, BreakHard
}

// findParagraph looks for "\n\n" (optionally with trailing whitespace on the
// blank line) and cuts right after it.
func findParagraph(runes []rune, minPos, maxPos int) (int, bool) {
	for i := minPos; i < maxPos; i++ {
		if runes[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
			j++
		}
		if j < len(runes) && runes[j] == '\n' {
			cut := j + 1
			if cut >= minPos && cut <= maxPos {
				return cut, true
			}
		}
	}
	return 0, false
}

func findSentence(runes []rune, minPos, maxPos int) (int, bool) {
	for i := minPos; i < maxPos; i++ {
		if !sentenceEnders[runes[i]] {
			continue
		}
		// Skip a run of closing punctuation/quotes directly after the ender.
		j := i + 1
		for j < len(runes) && (runes[j] == '"' || runes[j] == '\'' || runes[j] == ')' || runes[j] == ']') {
			j++
		}
		if j < len(runes) && unicode.IsSpace(runes[j]) {
			cut := j + 1
			if cut >= minPos && cut <= maxPos {
				return cut, true
			}
		} else if j == len(runes) && j >= minPos && j <= maxPos {
			return j, true
		}
	}
	return 0, false
}

func findLine(runes []rune, minPos, maxPos int) (int, bool) {
	for i := minPos; i < maxPos; i++ {
		if runes[i] == '\n' {
			cut := i + 1
			if cut >= minPos && cut <= maxPos {
				return cut, true
			}
		}
	}
	return 0, false
}

func findClause(runes []rune, minPos, maxPos int) (int, bool) {
	for i := minPos; i < maxPos; i++ {
		if !clauseEnders[runes[i]] {
			continue
		}
		j := i + 1
		if j < len(runes) && unicode.IsSpace(runes[j]) {
			cut := j + 1
			if cut >= minPos && cut <= maxPos {
				return cut, true
			}
		}
	}
	return 0, false
}

func findWord(runes []rune, minPos, maxPos int) (int, bool) {
	for i := minPos; i < maxPos; i++ {
		if unicode.IsSpace(runes[i]) {
			cut := i + 1
			if cut >= minPos && cut <= maxPos {
				return cut, true
			}
		}
	}
	return 0, false
}
