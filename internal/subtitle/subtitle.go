// Package subtitle converts WebVTT subtitles to SRT and extracts readable
// text from subtitle files.
package subtitle

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

var (
	vttTiming = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})\.(\d{3}) --> (\d{2}:\d{2}:\d{2})\.(\d{3})`)
	srtTiming = regexp.MustCompile(`^\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}$`)

	inlineTimestamp  = regexp.MustCompile(`<\d+:\d+:\d+\.\d+>|\[\d+:\d+:\d+\.\d+\]`)
	leadingTimestamp = regexp.MustCompile(`^\d+:\d+:\d+`)
	tagOnlyLine      = regexp.MustCompile(`^<.*>$`)
	markupTag        = regexp.MustCompile(`</?c>|</?[a-zA-Z][^>]*>`)
)

var vttHeaders = []string{"WEBVTT", "Kind:", "Language:", "Transcriber:", "Reviewer:"}

// paragraphLines is how many cue lines are grouped into one paragraph by
// Transcript.
const paragraphLines = 6

// VTTToSRT converts WebVTT to SRT. Cues are renumbered from 1, timestamps
// switch to comma milliseconds, and headers and blank lines are dropped.
func VTTToSRT(vtt string) string {
	var (
		out     []string
		pending []string
		counter = 1
	)

	for _, line := range lines(vtt) {
		if line == "" || hasAnyPrefix(line, vttHeaders) {
			continue
		}

		m := vttTiming.FindStringSubmatch(line)
		if m == nil {
			pending = append(pending, line)
			continue
		}

		if len(pending) > 0 {
			out = append(out, pending...)
			out = append(out, "")
			pending = pending[:0]
		}
		out = append(out,
			strconv.Itoa(counter),
			m[1]+","+m[2]+" --> "+m[3]+","+m[4],
		)
		counter++
	}

	if len(pending) > 0 {
		out = append(out, pending...)
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}

// CleanText drops cue numbers, timing lines and blank lines from SRT and
// joins the remaining text lines with newlines.
func CleanText(srt string) string {
	var out []string
	for _, line := range lines(srt) {
		if line == "" || isDigits(line) || srtTiming.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Transcript turns WebVTT into readable paragraphs: timing, markup and
// headers are removed, cue lines are grouped, and consecutive duplicate
// paragraphs are collapsed.
func Transcript(vtt string) string {
	var (
		paragraphs []string
		current    []string
		inContent  bool
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for _, line := range lines(inlineTimestamp.ReplaceAllString(vtt, "")) {
		if line == "" || strings.HasPrefix(line, "WEBVTT") || strings.Contains(line, "-->") ||
			isDigits(line) || leadingTimestamp.MatchString(line) {
			if inContent {
				flush()
			}
			continue
		}
		if tagOnlyLine.MatchString(line) || hasAnyPrefix(line, vttHeaders[1:]) {
			continue
		}

		inContent = true
		current = append(current, line)
		if len(current) >= paragraphLines {
			flush()
		}
	}
	flush()

	var out []string
	for i, p := range paragraphs {
		p = markupTag.ReplaceAllString(p, "")
		if i > 0 && strings.TrimSpace(p) == strings.TrimSpace(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// lines splits s into trimmed lines.
func lines(s string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out = append(out, strings.TrimSpace(sc.Text()))
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
