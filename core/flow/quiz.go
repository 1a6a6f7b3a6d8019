package flow

type (
	// PracticeAnswers are a student's picks, keyed by question index.
	PracticeAnswers struct {
		Quiz    []QuizQuestion `json:"quiz" validate:"min=1,dive"`
		Answers map[int]string `json:"answers"`
	}

	QuestionResult struct {
		Index    int    `json:"index"`
		Question string `json:"question"`
		Selected string `json:"selected"`
		Answer   string `json:"answer"`
		Correct  bool   `json:"correct"`
	}

	QuizScore struct {
		Total   int              `json:"total"`
		Correct int              `json:"correct"`
		Percent int              `json:"percent"`
		Results []QuestionResult `json:"results"`
	}
)

// ScorePracticeQuiz grades answers against quiz. Unanswered questions count as wrong.
func ScorePracticeQuiz(quiz []QuizQuestion, answers map[int]string) QuizScore {
	score := QuizScore{Total: len(quiz), Results: make([]QuestionResult, 0, len(quiz))}
	for i, q := range quiz {
		selected := answers[i]
		correct := selected != "" && selected == q.Answer
		if correct {
			score.Correct++
		}
		score.Results = append(score.Results, QuestionResult{
			Index:    i,
			Question: q.Question,
			Selected: selected,
			Answer:   q.Answer,
			Correct:  correct,
		})
	}
	if score.Total > 0 {
		score.Percent = score.Correct * 100 / score.Total
	}
	return score
}
