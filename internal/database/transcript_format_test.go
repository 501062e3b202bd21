package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarg/clinic-engine/internal/model"
)

func TestEncodeTranscript(t *testing.T) {
	got, err := EncodeTranscript([]model.Sentence{{Start: 0, Text: "Hello there."}, {Start: 2, Text: "Welcome back."}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2,"sentences":[{"start":0,"text":"Hello there."},{"start":2,"text":"Welcome back."}]}`, got)

	empty, err := EncodeTranscript(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2,"sentences":[]}`, empty)
}

func TestDecodeTranscript(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []model.Sentence
	}{
		{
			"current",
			`{"version":2,"sentences":[{"start":0,"text":"Hello there."},{"start":2,"text":"Welcome back."}]}`,
			[]model.Sentence{{Start: 0, Text: "Hello there."}, {Start: 2, Text: "Welcome back."}},
		},
		{
			"bare_array",
			`[{"start":4.5,"text":"Any issues today?"}]`,
			[]model.Sentence{{Start: 4.5, Text: "Any issues today?"}},
		},
		{
			"legacy_text",
			"[00:00] Hello there.\n[00:02] Welcome back.\n[01:05] Read the top line.",
			[]model.Sentence{{Start: 0, Text: "Hello there."}, {Start: 2, Text: "Welcome back."}, {Start: 65, Text: "Read the top line."}},
		},
		{
			"legacy_line_without_prefix",
			"[00:03] Look up.\nNow down.",
			[]model.Sentence{{Start: 3, Text: "Look up."}, {Start: 3, Text: "Now down."}},
		},
		{
			"plain_text",
			"no timestamps here",
			[]model.Sentence{{Start: 0, Text: "no timestamps here"}},
		},
		{"empty", "", []model.Sentence{}},
		{"empty_envelope", `{"version":2}`, []model.Sentence{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTranscript(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTranscript_Errors(t *testing.T) {
	_, err := DecodeTranscript(`{"version":9,"sentences":[]}`)
	assert.ErrorContains(t, err, "unsupported version 9")

	_, err = DecodeTranscript(`{"version":`)
	assert.Error(t, err)
}

func TestTranscriptRoundTrip(t *testing.T) {
	in := []model.Sentence{{Start: 0, Text: "A."}, {Start: 0.33, Text: "B."}}
	enc, err := EncodeTranscript(in)
	require.NoError(t, err)
	out, err := DecodeTranscript(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
