package transcribe

import (
	"math"
	"regexp"
	"strings"

	"github.com/snarg/clinic-engine/internal/model"
)

// sentenceBoundary matches terminal punctuation followed by whitespace. The
// punctuation stays with the sentence on its left.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// SplitSentences splits text on sentence boundaries. A trailing fragment
// without terminal punctuation is kept as the last piece. Pieces are not
// trimmed and may be empty.
func SplitSentences(text string) []string {
	var pieces []string
	prev := 0
	for _, m := range sentenceBoundary.FindAllStringIndex(text, -1) {
		pieces = append(pieces, text[prev:m[0]+1])
		prev = m[1]
	}
	return append(pieces, text[prev:])
}

// Sentences converts coarse provider segments into sentence units. Sentences
// within a segment are assumed to be evenly spaced across its span: piece i of
// n starts at Start + (i/n)*(End-Start). Blank pieces keep their slot in the
// spacing but emit nothing.
func Sentences(segments []Segment) []model.Sentence {
	out := []model.Sentence{}
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		pieces := SplitSentences(text)
		n := float64(len(pieces))
		dur := seg.End - seg.Start
		for i, p := range pieces {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			out = append(out, model.Sentence{
				Start: round2(seg.Start + float64(i)/n*dur),
				Text:  p,
			})
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
