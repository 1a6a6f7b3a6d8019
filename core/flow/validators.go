package flow

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutortrack/core"
)

var (
	answerInOptionsTag  = "answerinoptions"
	answerInOptionsText = "the answer must be one of the options"
)

// InitValidators registers the flow validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(quizQuestionValidation, QuizQuestion{})
	core.RegisterCustomTranslation(validate, translator, answerInOptionsTag, answerInOptionsText)
}

// quizQuestionValidation checks that the answer is exactly one of the options.
func quizQuestionValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(QuizQuestion)
	if q.Answer == "" {
		return
	}
	for _, opt := range q.Options {
		if opt == q.Answer {
			return
		}
	}
	sl.ReportError(q.Answer, "answer", "Answer", answerInOptionsTag, "")
}
