package summarize

import (
	"context"
	"strings"

	"github.com/snarg/clinic-engine/internal/model"
)

// Completer produces a completion for a system instruction and user text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer turns a consultation transcript into a rubric-driven summary.
type Summarizer struct {
	llm Completer
}

func New(llm Completer) *Summarizer {
	return &Summarizer{llm: llm}
}

// Summarize returns the model's trimmed reply. The reply is not validated.
func (s *Summarizer) Summarize(ctx context.Context, transcript string, t model.AppointmentType, bullets []string) (string, error) {
	out, err := s.llm.Complete(ctx, Instruction(t, bullets), transcript)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
