package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const elevenLabsSTTEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsClient calls the ElevenLabs Speech-to-Text API.
// Implements the Provider interface.
type ElevenLabsClient struct {
	apiKey   string
	model    string // "scribe_v1" or "scribe_v2"
	language string
	keyterms string // comma-separated boost terms
	endpoint string
	client   *http.Client
}

type elevenlabsResponse struct {
	LanguageCode string           `json:"language_code"`
	Text         string           `json:"text"`
	Words        []elevenlabsWord `json:"words"`
}

// elevenlabsWord is a word or spacing entry from ElevenLabs.
type elevenlabsWord struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"` // "word" or "spacing"
	StartTimeMs float64 `json:"start_time_ms"`
	EndTimeMs   float64 `json:"end_time_ms"`
}

// NewElevenLabsClient creates a new ElevenLabs STT client.
func NewElevenLabsClient(apiKey, model, language, keyterms string, timeout time.Duration) *ElevenLabsClient {
	if model == "" {
		model = "scribe_v1"
	}
	if language == "" {
		language = "en"
	}
	return &ElevenLabsClient{
		apiKey:   apiKey,
		model:    model,
		language: language,
		keyterms: keyterms,
		endpoint: elevenLabsSTTEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (el *ElevenLabsClient) Name() string  { return "elevenlabs" }
func (el *ElevenLabsClient) Model() string { return el.model }

// Transcribe sends audio to the ElevenLabs STT API. Word timestamps are
// grouped into one segment per sentence, so sentence starts are exact
// rather than interpolated.
func (el *ElevenLabsClient) Transcribe(ctx context.Context, filename string, audio []byte) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	w.WriteField("model_id", el.model)
	w.WriteField("language_code", el.language)
	w.WriteField("timestamps_granularity", "word")
	if kt := el.buildKeyterms(); kt != "" {
		w.WriteField("keyterms", kt)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, el.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", el.apiKey)

	resp, err := el.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	segments := wordSegments(result.Words)
	var duration float64
	if n := len(segments); n > 0 {
		duration = segments[n-1].End
	}
	if len(segments) == 0 && strings.TrimSpace(result.Text) != "" {
		segments = append(segments, Segment{Text: result.Text})
	}

	return &Response{
		Text:     result.Text,
		Language: result.LanguageCode,
		Duration: duration,
		Segments: segments,
	}, nil
}

// wordSegments joins consecutive words into segments that end at terminal
// punctuation. Spacing entries are skipped.
func wordSegments(words []elevenlabsWord) []Segment {
	var (
		out   []Segment
		parts []string
		cur   Segment
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		cur.Text = strings.Join(parts, " ")
		out = append(out, cur)
		parts = parts[:0]
	}
	for _, ew := range words {
		if ew.Type != "word" {
			continue
		}
		text := strings.TrimSpace(ew.Text)
		if text == "" {
			continue
		}
		if len(parts) == 0 {
			cur = Segment{Start: ew.StartTimeMs / 1000.0}
		}
		parts = append(parts, text)
		cur.End = ew.EndTimeMs / 1000.0
		if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!") {
			flush()
		}
	}
	flush()
	return out
}

// buildKeyterms converts the comma-separated keyterms into the JSON array of
// {"text": "term"} objects the ElevenLabs API expects.
func (el *ElevenLabsClient) buildKeyterms() string {
	var terms []string
	for _, t := range strings.Split(el.keyterms, ",") {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return ""
	}

	type keyterm struct {
		Text string `json:"text"`
	}
	arr := make([]keyterm, len(terms))
	for i, t := range terms {
		arr[i] = keyterm{Text: t}
	}
	b, _ := json.Marshal(arr)
	return string(b)
}
