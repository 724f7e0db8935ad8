package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

func yesNoQuestion(id string, required bool) model.Question {
	return model.Question{ID: id, Text: "Interested in enrolling?", Type: model.QuestionTypeYesNo, Required: required, Order: 0}
}

func TestValidateQuestions(t *testing.T) {
	testCases := []struct {
		name      string
		questions []model.Question
		wantField string
	}{
		{
			name: "valid set",
			questions: []model.Question{
				yesNoQuestion("q1", true),
				{ID: "q2", Text: "Preferred campus?", Type: model.QuestionTypeMultipleChoice, Options: []string{"North", "South"}, Order: 1},
			},
		},
		{
			name:      "duplicate ids",
			questions: []model.Question{yesNoQuestion("q1", false), yesNoQuestion("q1", false)},
			wantField: "questions[1].id",
		},
		{
			name:      "unknown type",
			questions: []model.Question{{ID: "q1", Text: "Age?", Type: "integer"}},
			wantField: "questions[0].type",
		},
		{
			name:      "multiple_choice needs two options",
			questions: []model.Question{{ID: "q1", Text: "Campus?", Type: model.QuestionTypeMultipleChoice, Options: []string{"North"}}},
			wantField: "questions[0].options",
		},
		{
			name:      "options rejected on text question",
			questions: []model.Question{{ID: "q1", Text: "Comments?", Type: model.QuestionTypeText, Options: []string{"a", "b"}}},
			wantField: "questions[0].options",
		},
		{
			name:      "empty text",
			questions: []model.Question{{ID: "q1", Text: "   ", Type: model.QuestionTypeText}},
			wantField: "questions[0].text",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateQuestions(tc.questions)
			if tc.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Field == tc.wantField {
					found = true
				}
			}
			assert.True(t, found, "expected an error on %s, got %v", tc.wantField, errs)
		})
	}
}

func TestValidateAnswers_RequiredEnforcement(t *testing.T) {
	questions := []model.Question{yesNoQuestion("q1", true)}

	t.Run("required answer missing on completed call", func(t *testing.T) {
		_, errs := ValidateAnswers(questions, nil, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers.q1", errs[0].Field)
	})

	t.Run("requirement waived when contact not reached", func(t *testing.T) {
		coerced, errs := ValidateAnswers(questions, nil, model.CallStatusNoAnswer)
		assert.Empty(t, errs)
		assert.Empty(t, coerced)
	})

	t.Run("empty string does not satisfy a required question", func(t *testing.T) {
		submitted := []SubmittedAnswer{{QuestionID: "q1", Answer: "  "}}
		_, errs := ValidateAnswers(questions, submitted, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers.q1", errs[0].Field)
	})
}

func TestValidateAnswers_Coercion(t *testing.T) {
	questions := []model.Question{
		yesNoQuestion("q1", false),
		{ID: "q2", Text: "How many siblings?", Type: model.QuestionTypeNumber, Order: 1},
		{ID: "q3", Text: "Preferred campus?", Type: model.QuestionTypeMultipleChoice, Options: []string{"North", "South"}, Order: 2},
	}

	t.Run("yes string coerces to true", func(t *testing.T) {
		coerced, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "q1", Answer: "yes"}}, model.CallStatusCompleted)
		require.Empty(t, errs)
		require.Len(t, coerced, 1)
		assert.Equal(t, true, coerced[0].Answer)
		assert.Equal(t, model.QuestionTypeYesNo, coerced[0].AnswerType)
		assert.Equal(t, "Interested in enrolling?", coerced[0].Question)
	})

	t.Run("numeric string round-trips as float", func(t *testing.T) {
		coerced, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "q2", Answer: "3"}}, model.CallStatusCompleted)
		require.Empty(t, errs)
		require.Len(t, coerced, 1)
		assert.Equal(t, float64(3), coerced[0].Answer)
	})

	t.Run("non-numeric string rejected naming the question", func(t *testing.T) {
		_, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "q2", Answer: "many"}}, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers.q2", errs[0].Field)
	})

	t.Run("multiple_choice outside options rejected", func(t *testing.T) {
		_, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "q3", Answer: "East"}}, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers.q3", errs[0].Field)
	})

	t.Run("multiple_choice member accepted", func(t *testing.T) {
		coerced, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "q3", Answer: "South"}}, model.CallStatusCompleted)
		require.Empty(t, errs)
		require.Len(t, coerced, 1)
		assert.Equal(t, "South", coerced[0].Answer)
	})
}

func TestValidateAnswers_StructuralRules(t *testing.T) {
	questions := []model.Question{yesNoQuestion("q1", false)}

	t.Run("unknown question id rejected", func(t *testing.T) {
		_, errs := ValidateAnswers(questions, []SubmittedAnswer{{QuestionID: "ghost", Answer: true}}, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers.ghost", errs[0].Field)
	})

	t.Run("duplicate answers for one question rejected", func(t *testing.T) {
		submitted := []SubmittedAnswer{
			{QuestionID: "q1", Answer: true},
			{QuestionID: "q1", Answer: false},
		}
		_, errs := ValidateAnswers(questions, submitted, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "duplicate")
	})

	t.Run("completed call with zero answers rejected", func(t *testing.T) {
		_, errs := ValidateAnswers(questions, nil, model.CallStatusCompleted)
		require.Len(t, errs, 1)
		assert.Equal(t, "answers", errs[0].Field)
	})

	t.Run("missed call with zero answers accepted", func(t *testing.T) {
		coerced, errs := ValidateAnswers(questions, nil, model.CallStatusMissed)
		assert.Empty(t, errs)
		assert.Empty(t, coerced)
	})
}
