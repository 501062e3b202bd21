package summarize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/snarg/clinic-engine/internal/model"
)

var ErrInvalidBulletList = errors.New("invalid bullet list")

type rubric struct {
	visit  string
	points string
}

// rubrics holds the fixed bullet points per appointment type. Special visits
// have no entry; their points come from the caller.
var rubrics = map[model.AppointmentType]rubric{
	model.TypeRoutine: {
		visit:  "appointment",
		points: "Purpose of visit, preexisting conditions, previous visual acuity, new visual acuity, diagnosis, recommended medication, follow-up appointment, and additional notes",
	},
	model.TypeContacts: {
		visit:  "contact lens appointment",
		points: "Purpose of visit, current contact lens brand and parameters, wearing schedule and lens hygiene, comfort and vision complaints, visual acuity with contacts, corneal health, new contact lens prescription, follow-up appointment, and additional notes",
	},
	model.TypePostSurgery: {
		visit:  "post-surgery follow-up appointment",
		points: "Procedure performed and date, healing progress, pain or discomfort, complications, intraocular pressure, visual acuity, medication changes, activity restrictions, follow-up appointment, and additional notes",
	},
	model.TypeGlasses: {
		visit:  "glasses prescription appointment",
		points: "Purpose of visit, current prescription, refraction results, new prescription (sphere, cylinder, axis, add), pupillary distance, lens recommendations, frame notes, follow-up appointment, and additional notes",
	},
	model.TypeSurgery: {
		visit:  "surgery consultation",
		points: "Procedure, indication for surgery, risks discussed, anesthesia, intraoperative findings, complications, implants or lenses used, post-operative instructions, prescribed medication, follow-up appointment, and additional notes",
	},
	model.TypeEmergency: {
		visit:  "emergency appointment",
		points: "Chief complaint, onset and cause, symptoms, visual acuity, examination findings, diagnosis, treatment given, referral, follow-up appointment, and additional notes",
	},
}

const instructionFormat = "Summarize the following eye doctor %s conversation. " +
	"Use the following bullet points: %s. " +
	"If any of these points are not mentioned, do not include them in the summary. " +
	"Always use numbers instead of words for numbers (eg. -1 instead of minus one)."

// Instruction returns the system instruction for an appointment type. For
// special visits the rubric is the caller's bullets joined by ", ". Unknown
// types, and special visits without bullets, use the routine rubric.
func Instruction(t model.AppointmentType, bullets []string) string {
	if t == model.TypeSpecial && len(bullets) > 0 {
		return fmt.Sprintf(instructionFormat, "special appointment", strings.Join(bullets, ", "))
	}
	r, ok := rubrics[t]
	if !ok {
		r = rubrics[model.TypeRoutine]
	}
	return fmt.Sprintf(instructionFormat, r.visit, r.points)
}

// ParseBulletList decodes a JSON array of bullet labels as sent by the
// upload form. Labels are trimmed; empty arrays and blank labels are rejected.
func ParseBulletList(raw string) ([]string, error) {
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBulletList, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: at least one bullet point is required", ErrInvalidBulletList)
	}
	for i, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, fmt.Errorf("%w: bullet %d is empty", ErrInvalidBulletList, i)
		}
		labels[i] = l
	}
	return labels, nil
}

// JoinTranscript concatenates sentence texts with single spaces.
func JoinTranscript(sentences []model.Sentence) string {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}
