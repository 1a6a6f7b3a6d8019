package flow_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutortrack/assets"
	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
	"github.com/trezcool/tutortrack/testutil"
)

type fakeGenerator struct {
	calls int32
	last  flow.GenerateRequest
	out   string
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, req flow.GenerateRequest) ([]byte, error) {
	atomic.AddInt32(&g.calls, 1)
	g.last = req
	return []byte(g.out), g.err
}

func newService(t *testing.T, gen flow.Generator) (*flow.Service, *testutil.Logger) {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	flow.InitValidators(validate, translator)

	cat, err := flow.LoadCatalog(assets.Prompts, "TutorTrack")
	require.NoError(t, err)

	logger := testutil.NewLogger()
	svc, err := flow.NewService(cat, gen, validate, logger)
	require.NoError(t, err)
	return svc, logger
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

var fractionsQuiz = flow.QuizOutput{Quiz: []flow.QuizQuestion{
	{Question: "What is 1/2 + 1/4?", Options: []string{"3/4", "2/6", "1/8"}, Answer: "3/4"},
	{Question: "Which is larger?", Options: []string{"1/3", "1/2"}, Answer: "1/2"},
}}

func TestService_GenerateQuiz(t *testing.T) {
	gen := &fakeGenerator{out: mustJSON(t, fractionsQuiz)}
	svc, _ := newService(t, gen)

	out, err := svc.GenerateQuiz(context.Background(), flow.QuizInput{Topic: " Fractions ", NumQuestions: 5, Difficulty: "easy"})
	require.NoError(t, err)
	if diff := cmp.Diff(fractionsQuiz, out); diff != "" {
		t.Errorf("GenerateQuiz() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, flow.NameGenerateQuiz, gen.last.Flow)
	assert.Contains(t, gen.last.Prompt, "Fractions")
	assert.Contains(t, gen.last.Prompt, "easy")
	require.NotNil(t, gen.last.Schema)
	assert.Equal(t, []string{"quiz"}, gen.last.Schema.Required)
}

func TestService_GenerateQuiz_invalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   flow.QuizInput
	}{
		{name: "no topic", in: flow.QuizInput{NumQuestions: 5, Difficulty: "easy"}},
		{name: "blank topic", in: flow.QuizInput{Topic: "   ", NumQuestions: 5, Difficulty: "easy"}},
		{name: "zero questions", in: flow.QuizInput{Topic: "Fractions", Difficulty: "easy"}},
		{name: "too many questions", in: flow.QuizInput{Topic: "Fractions", NumQuestions: 21, Difficulty: "easy"}},
		{name: "unknown difficulty", in: flow.QuizInput{Topic: "Fractions", NumQuestions: 5, Difficulty: "insane"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{out: mustJSON(t, fractionsQuiz)}
			svc, _ := newService(t, gen)

			_, err := svc.GenerateQuiz(context.Background(), tt.in)
			var vErrs validator.ValidationErrors
			assert.True(t, errors.As(err, &vErrs), "want ValidationErrors, got %v", err)
			assert.Zero(t, atomic.LoadInt32(&gen.calls), "generator must not be called")
		})
	}
}

func TestService_invalidInputNeverGenerates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(svc *flow.Service) error
	}{
		{name: "chat", call: func(svc *flow.Service) error {
			_, err := svc.GenerateResponse(ctx, flow.ChatInput{Prompt: " \n "})
			return err
		}},
		{name: "chat title", call: func(svc *flow.Service) error {
			_, err := svc.SummarizeChatTitle(ctx, flow.ChatTitleInput{})
			return err
		}},
		{name: "quiz", call: func(svc *flow.Service) error {
			_, err := svc.GenerateQuiz(ctx, flow.QuizInput{Topic: "Fractions", NumQuestions: 5})
			return err
		}},
		{name: "practice quiz too many questions", call: func(svc *flow.Service) error {
			_, err := svc.GeneratePracticeQuiz(ctx, flow.PracticeQuizInput{Topic: "Fractions", NumQuestions: 11, Difficulty: "easy"})
			return err
		}},
		{name: "practice quiz short topic", call: func(svc *flow.Service) error {
			_, err := svc.GeneratePracticeQuiz(ctx, flow.PracticeQuizInput{Topic: "ab", NumQuestions: 5, Difficulty: "easy"})
			return err
		}},
		{name: "paper", call: func(svc *flow.Service) error {
			_, err := svc.AnalyzeAndGradePaper(ctx, flow.PaperInput{PaperText: "essay", AssignmentInstructions: "argue"})
			return err
		}},
		{name: "curriculum", call: func(svc *flow.Service) error {
			_, err := svc.CreateCurriculum(ctx, flow.CurriculumInput{Subject: "Algebra", LearningObjectives: "   "})
			return err
		}},
		{name: "assignment help", call: func(svc *flow.Service) error {
			_, err := svc.AssignmentHelp(ctx, flow.AssignmentHelpInput{AssignmentDetails: "Explain photosynthesis"})
			return err
		}},
		{name: "career coach", call: func(svc *flow.Service) error {
			_, err := svc.CareerCoach(ctx, flow.CareerCoachInput{CurrentSkills: "Excel", Interests: "Data"})
			return err
		}},
		{name: "skills guide", call: func(svc *flow.Service) error {
			_, err := svc.SkillsGuide(ctx, flow.SkillsGuideInput{DesiredSkills: "Statistics"})
			return err
		}},
		{name: "resume", call: func(svc *flow.Service) error {
			_, err := svc.BuildResume(ctx, flow.ResumeInput{FullName: "Jane Doe", ContactInfo: "jane@test.test"})
			return err
		}},
		{name: "opportunities unknown type", call: func(svc *flow.Service) error {
			_, err := svc.FindOpportunities(ctx, flow.OpportunitiesInput{FieldOfStudy: "Physics", Interests: "Space", OpportunityType: "job"})
			return err
		}},
		{name: "recommendations unknown type", call: func(svc *flow.Service) error {
			_, err := svc.GenerateRecommendations(ctx, flow.RecommendationsInput{LearningGoals: "Learn CS", RecommendationType: "books"})
			return err
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{out: `{}`}
			svc, logger := newService(t, gen)

			err := tt.call(svc)
			var vErrs validator.ValidationErrors
			assert.True(t, errors.As(err, &vErrs), "want ValidationErrors, got %v", err)
			assert.False(t, errors.Is(err, flow.ErrFlowFailed))
			assert.Zero(t, atomic.LoadInt32(&gen.calls), "generator must not be called")
			assert.Empty(t, logger.Messages)
		})
	}
}

func TestService_GenerateQuiz_badOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{name: "generator error", err: errors.New("quota exceeded")},
		{name: "empty", out: ""},
		{name: "not json", out: "Here is your quiz!"},
		{name: "unknown field", out: `{"quiz":[],"extra":true}`},
		{name: "trailing data", out: mustJSON(t, fractionsQuiz) + `{}`},
		{name: "no questions", out: `{"quiz":[]}`},
		{name: "answer not an option", out: `{"quiz":[{"question":"q","options":["a","b"],"answer":"c"}]}`},
		{name: "single option", out: `{"quiz":[{"question":"q","options":["a"],"answer":"a"}]}`},
		{name: "blank question", out: `{"quiz":[{"question":"  ","options":["a","b"],"answer":"a"}]}`},
		{name: "blank option", out: `{"quiz":[{"question":"q","options":["a","\t"],"answer":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{out: tt.out, err: tt.err}
			svc, logger := newService(t, gen)

			_, err := svc.GenerateQuiz(context.Background(), flow.QuizInput{Topic: "Fractions", NumQuestions: 5, Difficulty: "easy"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, flow.ErrFlowFailed))

			var ferr *flow.Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, flow.NameGenerateQuiz, ferr.Flow)
			assert.NotEmpty(t, ferr.Message)
			assert.Len(t, logger.Messages, 1)
		})
	}
}

func TestService_codeFencedOutput(t *testing.T) {
	gen := &fakeGenerator{out: "```json\n" + `{"title":"Fractions Basics"}` + "\n```"}
	svc, _ := newService(t, gen)

	out, err := svc.SummarizeChatTitle(context.Background(), flow.ChatTitleInput{ConversationSnippet: "user: teach me fractions"})
	require.NoError(t, err)
	assert.Equal(t, "Fractions Basics", out.Title)
	require.NotNil(t, gen.last.Temperature)
	assert.InDelta(t, 0.2, *gen.last.Temperature, 1e-6)
}

func TestService_passThrough(t *testing.T) {
	ctx := context.Background()

	curriculum := flow.CurriculumOutput{
		Title:              "Intro to Algebra",
		Description:        "Variables and equations.",
		LearningObjectives: []string{"Solve linear equations"},
		Modules: []flow.CurriculumModule{
			{ModuleNumber: 1, ModuleTitle: "Variables", Topics: []string{"Symbols"}, Activities: []string{"Worksheet"}},
		},
	}
	paper := flow.PaperOutput{Grade: "B+", Feedback: "Solid argument.", ScoreBreakdown: "Thesis 8/10"}
	help := flow.AssignmentHelpOutput{Explanation: "Photosynthesis turns light into sugar.", Suggestions: "Start with the light reactions."}
	coach := flow.CareerCoachOutput{SuggestedCareerPaths: "Data analyst", SkillsToDevelop: "SQL", ActionableSteps: "Build a portfolio"}
	guide := flow.SkillsGuideOutput{SkillsAnalysis: "Gap in stats", LearningPathSuggestions: "Stats 101", RecommendedResources: "Khan Academy"}
	resume := flow.ResumeOutput{ResumeContent: "# Jane Doe", CoverLetterContent: "Dear hiring manager"}
	opps := flow.OpportunitiesOutput{Opportunities: []flow.Opportunity{
		{Title: "STEM Grant", Organization: "NSF", Type: "Scholarship", Description: "Funds STEM majors.", URL: "https://www.nsf.gov/grant"},
	}}
	recs := flow.RecommendationsOutput{Recommendations: []flow.Recommendation{
		{Title: "CS50", Type: "Online Course", URL: "https://cs50.harvard.edu", Description: "Great intro."},
	}}
	chat := flow.ChatOutput{Response: "Hello! How can I help?"}

	tests := []struct {
		name string
		want interface{}
		call func(svc *flow.Service) (interface{}, error)
	}{
		{name: "curriculum", want: curriculum, call: func(svc *flow.Service) (interface{}, error) {
			return svc.CreateCurriculum(ctx, flow.CurriculumInput{Subject: "Algebra", LearningObjectives: "Solve equations"})
		}},
		{name: "paper", want: paper, call: func(svc *flow.Service) (interface{}, error) {
			return svc.AnalyzeAndGradePaper(ctx, flow.PaperInput{PaperText: "essay", AssignmentInstructions: "argue", GradingRubric: "thesis"})
		}},
		{name: "assignment help", want: help, call: func(svc *flow.Service) (interface{}, error) {
			return svc.AssignmentHelp(ctx, flow.AssignmentHelpInput{AssignmentDetails: "Explain photosynthesis", StudentLevel: "High School"})
		}},
		{name: "career coach", want: coach, call: func(svc *flow.Service) (interface{}, error) {
			return svc.CareerCoach(ctx, flow.CareerCoachInput{CurrentSkills: "Excel", Interests: "Data", CareerAspirations: "Analyst"})
		}},
		{name: "skills guide", want: guide, call: func(svc *flow.Service) (interface{}, error) {
			return svc.SkillsGuide(ctx, flow.SkillsGuideInput{CurrentSkills: "Excel", DesiredSkills: "Statistics"})
		}},
		{name: "resume", want: resume, call: func(svc *flow.Service) (interface{}, error) {
			return svc.BuildResume(ctx, flow.ResumeInput{
				FullName: "Jane Doe", ContactInfo: "jane@test.test", WorkExperience: "Cashier",
				Education: "BSc", Skills: "Excel", JobDescription: "Analyst",
			})
		}},
		{name: "opportunities", want: opps, call: func(svc *flow.Service) (interface{}, error) {
			return svc.FindOpportunities(ctx, flow.OpportunitiesInput{FieldOfStudy: "Physics", Interests: "Space"})
		}},
		{name: "recommendations", want: recs, call: func(svc *flow.Service) (interface{}, error) {
			return svc.GenerateRecommendations(ctx, flow.RecommendationsInput{LearningGoals: "Learn CS", RecommendationType: "web_resources"})
		}},
		{name: "chat", want: chat, call: func(svc *flow.Service) (interface{}, error) {
			return svc.GenerateResponse(ctx, flow.ChatInput{Prompt: "hi"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{out: mustJSON(t, tt.want)}
			svc, _ := newService(t, gen)

			got, err := tt.call(svc)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			assert.EqualValues(t, 1, gen.calls)
		})
	}
}

func TestService_FindOpportunities_defaultType(t *testing.T) {
	gen := &fakeGenerator{out: `{"opportunities":[{"title":"t","organization":"o","type":"Scholarship","description":"d","url":"https://example.org"}]}`}
	svc, _ := newService(t, gen)

	_, err := svc.FindOpportunities(context.Background(), flow.OpportunitiesInput{FieldOfStudy: "Physics", Interests: "Space"})
	require.NoError(t, err)
	assert.Contains(t, gen.last.Prompt, "scholarship")
}

func TestService_ScorePracticeQuiz(t *testing.T) {
	svc, _ := newService(t, &fakeGenerator{})

	score, err := svc.ScorePracticeQuiz(flow.PracticeAnswers{Quiz: fractionsQuiz.Quiz, Answers: map[int]string{0: "3/4", 1: "1/3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, score.Total)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, 50, score.Percent)

	_, err = svc.ScorePracticeQuiz(flow.PracticeAnswers{})
	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(err, &vErrs))
}

func TestNewService_missingPrompt(t *testing.T) {
	cat, err := flow.LoadCatalog([]byte("flows:\n  generateResponse:\n    prompt: hi\n"), "TutorTrack")
	require.NoError(t, err)
	_, err = flow.NewService(cat, &fakeGenerator{}, validator.New(), testutil.NewLogger())
	assert.Error(t, err)
}

func TestService_Schemas(t *testing.T) {
	svc, _ := newService(t, &fakeGenerator{})
	schemas := svc.Schemas()
	assert.Len(t, schemas, 12)
	for name, s := range schemas {
		assert.Equal(t, flow.TypeObject, s.Type, name)
		assert.NotEmpty(t, s.Required, name)
	}
}
