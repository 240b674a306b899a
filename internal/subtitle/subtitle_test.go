package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:02.500 align:start position:0%
Welcome to the demo video.

00:00:02.500 --> 00:00:05.000
Today we look at
summarization.
`

func TestVTTToSRT(t *testing.T) {
	want := "1\n" +
		"00:00:00,000 --> 00:00:02,500\n" +
		"Welcome to the demo video.\n" +
		"\n" +
		"2\n" +
		"00:00:02,500 --> 00:00:05,000\n" +
		"Today we look at\n" +
		"summarization.\n"

	assert.Equal(t, want, VTTToSRT(sampleVTT))
}

func TestVTTToSRT_Empty(t *testing.T) {
	assert.Equal(t, "", VTTToSRT("WEBVTT\n\n"))
}

func TestVTTToSRT_HandlesCRLF(t *testing.T) {
	got := VTTToSRT("WEBVTT\r\n\r\n00:00:01.000 --> 00:00:02.000\r\nHi\r\n")
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHi\n", got)
}

func TestCleanText(t *testing.T) {
	srt := VTTToSRT(sampleVTT)
	assert.Equal(t, "Welcome to the demo video.\nToday we look at\nsummarization.", CleanText(srt))
}

func TestTranscript(t *testing.T) {
	vtt := `WEBVTT
Kind: captions
Language: en

00:00:00.000 --> 00:00:01.000
<c>Hello</c><00:00:00.500> there

00:00:01.000 --> 00:00:02.000
<c>Hello</c><00:00:00.500> there

00:00:02.000 --> 00:00:03.000
General <b>Kenobi</b>
`

	assert.Equal(t, "Hello there\n\nGeneral Kenobi", Transcript(vtt))
}

func TestTranscript_GroupsLines(t *testing.T) {
	vtt := "WEBVTT\n\n00:00:00.000 --> 00:00:09.000\none\ntwo\nthree\nfour\nfive\nsix\nseven\n"
	assert.Equal(t, "one two three four five six\n\nseven", Transcript(vtt))
}
