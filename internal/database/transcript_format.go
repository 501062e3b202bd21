package database

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/snarg/clinic-engine/internal/model"
)

// TranscriptVersion is the storage format written by EncodeTranscript.
//
// Stored transcripts come in three shapes:
//
//	v2: {"version":2,"sentences":[{"start":0,"text":"..."}]}
//	v1: [{"start":0,"text":"..."}]
//	v0: plain text, one sentence per line, optionally prefixed "[MM:SS] "
//
// Older shapes are converted on read.
const TranscriptVersion = 2

type transcriptEnvelope struct {
	Version   int              `json:"version"`
	Sentences []model.Sentence `json:"sentences"`
}

// EncodeTranscript serializes sentences in the current storage format.
func EncodeTranscript(sentences []model.Sentence) (string, error) {
	if sentences == nil {
		sentences = []model.Sentence{}
	}
	b, err := json.Marshal(transcriptEnvelope{Version: TranscriptVersion, Sentences: sentences})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeTranscript parses any stored transcript shape into sentences. The
// result is never nil.
func DecodeTranscript(raw string) ([]model.Sentence, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		return []model.Sentence{}, nil

	case strings.HasPrefix(trimmed, "{"):
		var env transcriptEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		if env.Version != TranscriptVersion {
			return nil, fmt.Errorf("decode transcript: unsupported version %d", env.Version)
		}
		if env.Sentences == nil {
			return []model.Sentence{}, nil
		}
		return env.Sentences, nil

	case strings.HasPrefix(trimmed, "["):
		var sentences []model.Sentence
		if err := json.Unmarshal([]byte(trimmed), &sentences); err == nil {
			if sentences == nil {
				return []model.Sentence{}, nil
			}
			return sentences, nil
		}
		// "[MM:SS]" lines also start with a bracket.
		return decodeLegacyText(trimmed), nil
	}

	return decodeLegacyText(trimmed), nil
}

var legacyLineRe = regexp.MustCompile(`^\[(\d+):(\d{2})\]\s*(.*)$`)

// decodeLegacyText reads the v0 text format. Lines without a timestamp
// inherit the previous line's start.
func decodeLegacyText(raw string) []model.Sentence {
	sentences := []model.Sentence{}
	var start float64
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		text := line
		if m := legacyLineRe.FindStringSubmatch(line); m != nil {
			mins, _ := strconv.Atoi(m[1])
			secs, _ := strconv.Atoi(m[2])
			start = float64(mins*60 + secs)
			text = strings.TrimSpace(m[3])
		}
		if text == "" {
			continue
		}
		sentences = append(sentences, model.Sentence{Start: start, Text: text})
	}
	return sentences
}
