// Package script validates call scripts and caller-submitted answers.
// Everything here is pure: no I/O, no clock, no storage.
package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

// FieldError addresses one validation failure to the field (or question)
// that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmittedAnswer is the raw caller payload before coercion. Answer carries
// whatever the JSON decoder produced (string, float64, bool).
type SubmittedAnswer struct {
	QuestionID string      `json:"question_id"`
	Answer     interface{} `json:"answer"`
}

// ValidateQuestions checks a question set for structural soundness: unique
// IDs, known types, non-empty text, and option rules for multiple_choice.
func ValidateQuestions(questions []model.Question) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(questions))

	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)
		if q.ID == "" {
			errs = append(errs, FieldError{Field: field + ".id", Message: "question id is required"})
		} else if seen[q.ID] {
			errs = append(errs, FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate question id %q", q.ID)})
		}
		seen[q.ID] = true

		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, FieldError{Field: field + ".text", Message: "question text is required"})
		}
		if !model.KnownQuestionType(q.Type) {
			errs = append(errs, FieldError{Field: field + ".type", Message: fmt.Sprintf("unknown question type %q", q.Type)})
		}
		if q.Order < 0 {
			errs = append(errs, FieldError{Field: field + ".order", Message: "order must be >= 0"})
		}

		switch q.Type {
		case model.QuestionTypeMultipleChoice:
			if len(q.Options) < 2 {
				errs = append(errs, FieldError{Field: field + ".options", Message: "multiple_choice requires at least 2 options"})
			}
		default:
			if len(q.Options) > 0 {
				errs = append(errs, FieldError{Field: field + ".options", Message: fmt.Sprintf("options are only valid for multiple_choice, not %q", q.Type)})
			}
		}
	}
	return errs
}

// ValidateAnswers checks submitted answers against the script and coerces
// them into typed, denormalized Answer records ready for persistence.
//
// Required-answer enforcement and the at-least-one-answer rule only apply
// when the call status says the contact was reached; a call that rang out
// cannot produce answers.
func ValidateAnswers(questions []model.Question, submitted []SubmittedAnswer, callStatus string) ([]model.Answer, []FieldError) {
	var errs []FieldError

	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	answered := make(map[string]bool, len(submitted))
	coerced := make([]model.Answer, 0, len(submitted))

	for _, sub := range submitted {
		field := "answers." + sub.QuestionID
		if sub.QuestionID == "" {
			errs = append(errs, FieldError{Field: "answers", Message: "answer is missing question_id"})
			continue
		}
		q, ok := byID[sub.QuestionID]
		if !ok {
			errs = append(errs, FieldError{Field: field, Message: "no such question in the call script"})
			continue
		}
		if answered[sub.QuestionID] {
			errs = append(errs, FieldError{Field: field, Message: "duplicate answer for question"})
			continue
		}
		answered[sub.QuestionID] = true

		if isEmptyAnswer(sub.Answer) {
			// Empty answers are dropped, not stored; required-ness is
			// checked against the answered set below.
			continue
		}

		value, err := coerceAnswer(q, sub.Answer)
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
			continue
		}
		coerced = append(coerced, model.Answer{
			QuestionID: q.ID,
			Question:   q.Text,
			Answer:     value,
			AnswerType: q.Type,
		})
	}

	if model.ContactReached(callStatus) {
		for _, q := range questions {
			if q.Required && !containsAnswerFor(coerced, q.ID) {
				errs = append(errs, FieldError{
					Field:   "answers." + q.ID,
					Message: fmt.Sprintf("question %q is required for a completed call", q.Text),
				})
			}
		}
		if len(coerced) == 0 && len(errs) == 0 {
			errs = append(errs, FieldError{Field: "answers", Message: "a completed call must record at least one answer"})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return coerced, nil
}

func containsAnswerFor(answers []model.Answer, questionID string) bool {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

func isEmptyAnswer(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// coerceAnswer converts a raw submitted value into the canonical Go value
// for the question type: bool for yes_no, float64 for number, string for
// everything else.
func coerceAnswer(q model.Question, raw interface{}) (interface{}, error) {
	switch q.Type {
	case model.QuestionTypeYesNo:
		return coerceBool(raw)
	case model.QuestionTypeNumber:
		return coerceNumber(raw)
	case model.QuestionTypeMultipleChoice:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("multiple_choice answer must be a string, got %T", raw)
		}
		for _, opt := range q.Options {
			if s == opt {
				return s, nil
			}
		}
		return nil, fmt.Errorf("answer %q is not one of the declared options", s)
	case model.QuestionTypeDate, model.QuestionTypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s answer must be a string, got %T", q.Type, raw)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}

func coerceBool(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "true":
			return true, nil
		case "no", "n", "false":
			return false, nil
		}
		return nil, fmt.Errorf("cannot interpret %q as yes/no", v)
	default:
		return nil, fmt.Errorf("yes_no answer must be a boolean or yes/no string, got %T", raw)
	}
}

func coerceNumber(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("number answer must be finite")
		}
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot parse %q as a number", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("number answer must be numeric, got %T", raw)
	}
}
