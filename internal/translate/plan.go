// Package translate splits long text into chunks under the translation
// engine's character ceiling and reassembles the translated output.
//
// Chunking prefers paragraph boundaries, then sentence boundaries, and only
// slices text mid-sentence when a single sentence is longer than a chunk.
// All lengths are Unicode code points.
package translate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// HardCeiling is the most characters the engine accepts per request.
	HardCeiling = 5000

	// SafeChunk is the target chunk size, leaving margin below HardCeiling.
	SafeChunk = 4500
)

const paragraphSep = "\n\n"

// Chunk is one unit of text dispatched to the engine.
type Chunk struct {
	// Sep goes before this chunk's translation when reassembling. It is
	// empty for the first chunk and for continuation slices of one sentence.
	Sep  string
	Text string
}

// Plan splits text into ordered chunks of at most size code points.
// Joining Sep+Text of every chunk reproduces text, except that whitespace
// between sentences of an oversized paragraph collapses to one space.
func Plan(text string, size int) []Chunk {
	if size < 1 {
		size = SafeChunk
	}
	if runeLen(text) <= size {
		return []Chunk{{Text: text}}
	}

	p := &planner{size: size}
	for _, para := range strings.Split(text, paragraphSep) {
		p.addParagraph(para)
	}
	p.flushParagraphs()
	return p.chunks
}

type planner struct {
	size   int
	chunks []Chunk

	buf    strings.Builder
	bufLen int
	bufHas bool
}

// nextSep returns sep unless no chunk has been emitted yet.
func (p *planner) nextSep(sep string) string {
	if len(p.chunks) == 0 {
		return ""
	}
	return sep
}

func (p *planner) emit(sep, text string) {
	p.chunks = append(p.chunks, Chunk{Sep: p.nextSep(sep), Text: text})
}

func (p *planner) flushParagraphs() {
	if !p.bufHas {
		return
	}
	p.emit(paragraphSep, p.buf.String())
	p.buf.Reset()
	p.bufLen = 0
	p.bufHas = false
}

func (p *planner) addParagraph(para string) {
	n := runeLen(para)

	if p.bufHas && p.bufLen+n+len(paragraphSep) > p.size {
		p.flushParagraphs()
	}

	if n > p.size {
		p.flushParagraphs()
		p.addSentences(para)
		return
	}

	if p.bufHas {
		p.buf.WriteString(paragraphSep)
		p.bufLen += len(paragraphSep)
	}
	p.buf.WriteString(para)
	p.bufLen += n
	p.bufHas = true
}

// addSentences chunks one oversized paragraph at sentence granularity.
func (p *planner) addSentences(para string) {
	sep := paragraphSep

	var (
		buf    strings.Builder
		bufLen int
	)
	flush := func() {
		if bufLen == 0 {
			return
		}
		p.emit(sep, buf.String())
		sep = " "
		buf.Reset()
		bufLen = 0
	}

	for _, sentence := range SplitSentences(para) {
		n := runeLen(sentence)

		switch {
		case n > p.size:
			flush()
			for i, slice := range sliceRunes(sentence, p.size) {
				if i == 0 {
					p.emit(sep, slice)
				} else {
					p.emit("", slice)
				}
			}
			sep = " "
		case bufLen > 0 && bufLen+n+1 > p.size:
			flush()
			buf.WriteString(sentence)
			bufLen = n
		default:
			if bufLen > 0 {
				buf.WriteByte(' ')
				bufLen++
			}
			buf.WriteString(sentence)
			bufLen += n
		}
	}
	flush()
}

// SplitSentences splits text after '.', '!' or '?' wherever whitespace
// follows. The whitespace run is dropped; punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)

	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		i += w
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		j := i
		for j < len(text) {
			s, sw := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(s) {
				break
			}
			j += sw
		}
		if j == end {
			continue
		}

		out = append(out, text[start:end])
		start = j
		i = j
	}

	return append(out, text[start:])
}

// sliceRunes cuts s into consecutive pieces of at most size code points.
func sliceRunes(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		cut, count := 0, 0
		for cut < len(s) && count < size {
			_, w := utf8.DecodeRuneInString(s[cut:])
			cut += w
			count++
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncateRunes returns the first n code points of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
