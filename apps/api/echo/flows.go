package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/flow"
)

type flowApi struct {
	svc *flow.Service
}

func registerFlowAPI(student, teacher *echo.Group, svc *flow.Service) {
	api := flowApi{svc: svc}

	student.POST("/career-coach", flowHandler(svc.CareerCoach))
	student.POST("/skills-guide", flowHandler(svc.SkillsGuide))
	student.POST("/assignment-help", flowHandler(svc.AssignmentHelp))
	student.POST("/recommendations", flowHandler(svc.GenerateRecommendations))
	student.POST("/scholarships", flowHandler(svc.FindOpportunities))
	student.POST("/resume", flowHandler(svc.BuildResume))
	student.POST("/practice-quiz", flowHandler(svc.GeneratePracticeQuiz))
	student.POST("/practice-quiz/score", api.scorePracticeQuiz)

	teacher.POST("/paper-checker", flowHandler(svc.AnalyzeAndGradePaper))
	teacher.POST("/quiz-maker", flowHandler(svc.GenerateQuiz))
	teacher.POST("/curriculum", flowHandler(svc.CreateCurriculum))
}

// flowHandler binds the request body to In, runs the flow and renders its output.
// Input validation happens inside the flow.
func flowHandler[In, Out any](run func(context.Context, In) (Out, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var in In
		if err := ctx.Bind(&in); err != nil {
			return errors.Wrapf(err, "binding to %T", in)
		}
		out, err := run(ctx.Request().Context(), in)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, out)
	}
}

func (api *flowApi) scorePracticeQuiz(ctx echo.Context) error {
	var data flow.PracticeAnswers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PracticeAnswers")
	}
	score, err := api.svc.ScorePracticeQuiz(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, score)
}
