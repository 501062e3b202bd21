package transcribe

import (
	"reflect"
	"testing"

	"github.com/snarg/clinic-engine/internal/model"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "Hello there.", []string{"Hello there."}},
		{"two", "Hello there. Welcome back.", []string{"Hello there.", "Welcome back."}},
		{"mixed_punctuation", "Really? Yes! Okay.", []string{"Really?", "Yes!", "Okay."}},
		{"trailing_fragment", "Read the chart. Next line", []string{"Read the chart.", "Next line"}},
		{"multiple_spaces", "One.   Two.", []string{"One.", "Two."}},
		{"newline_boundary", "One.\nTwo.", []string{"One.", "Two."}},
		{"decimal_not_split", "Pressure is 14.5 today.", []string{"Pressure is 14.5 today."}},
		{"no_punctuation", "just words", []string{"just words"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSentences_ConsultationExample(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 4, Text: "Hello there. Welcome back."},
		{Start: 4, End: 6, Text: "Any issues today?"},
	}
	want := []model.Sentence{
		{Start: 0.0, Text: "Hello there."},
		{Start: 2.0, Text: "Welcome back."},
		{Start: 4.0, Text: "Any issues today?"},
	}

	got := Sentences(segments)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %+v, want %+v", got, want)
	}
}

func TestSentences_EvenSpacing(t *testing.T) {
	seg := Segment{Start: 10, End: 13, Text: "A. B. C."}
	got := Sentences([]Segment{seg})

	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(got))
	}
	if got[0].Start != seg.Start {
		t.Errorf("first start = %v, want %v", got[0].Start, seg.Start)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Errorf("start[%d]=%v < start[%d]=%v", i, got[i].Start, i-1, got[i-1].Start)
		}
	}
	for _, s := range got {
		if s.Start < seg.Start || s.Start >= seg.End {
			t.Errorf("start %v outside [%v, %v)", s.Start, seg.Start, seg.End)
		}
	}
}

func TestSentences_Rounding(t *testing.T) {
	got := Sentences([]Segment{{Start: 0, End: 1, Text: "A. B. C."}})
	want := []float64{0, 0.33, 0.67}
	for i, s := range got {
		if s.Start != want[i] {
			t.Errorf("start[%d] = %v, want %v", i, s.Start, want[i])
		}
	}
}

func TestSentences_SingleSentenceStartsAtSegmentStart(t *testing.T) {
	got := Sentences([]Segment{{Start: 7.25, End: 12, Text: "  Look straight ahead  "}})
	if len(got) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(got))
	}
	if got[0].Start != 7.25 || got[0].Text != "Look straight ahead" {
		t.Errorf("got %+v", got[0])
	}
}

func TestSentences_EmptySegmentsContributeNothing(t *testing.T) {
	got := Sentences([]Segment{
		{Start: 0, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "   "},
		{Start: 3, End: 5, Text: "Blink."},
	})
	if len(got) != 1 || got[0].Start != 3 {
		t.Errorf("got %+v, want single sentence at 3", got)
	}
}

func TestSentences_NilInput(t *testing.T) {
	got := Sentences(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Sentences(nil) = %#v, want empty non-nil slice", got)
	}
}
