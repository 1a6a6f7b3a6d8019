package flow

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tutortrack/core"
)

// Service runs the AI flows. It is safe for concurrent use.
type Service struct {
	env *env

	chat            *Definition[ChatInput, ChatOutput]
	chatTitle       *Definition[ChatTitleInput, ChatTitleOutput]
	quiz            *Definition[QuizInput, QuizOutput]
	practiceQuiz    *Definition[PracticeQuizInput, QuizOutput]
	paper           *Definition[PaperInput, PaperOutput]
	curriculum      *Definition[CurriculumInput, CurriculumOutput]
	assignmentHelp  *Definition[AssignmentHelpInput, AssignmentHelpOutput]
	careerCoach     *Definition[CareerCoachInput, CareerCoachOutput]
	skillsGuide     *Definition[SkillsGuideInput, SkillsGuideOutput]
	resume          *Definition[ResumeInput, ResumeOutput]
	opportunities   *Definition[OpportunitiesInput, OpportunitiesOutput]
	recommendations *Definition[RecommendationsInput, RecommendationsOutput]
}

// NewService builds every flow from cat. It fails if a flow has no usable prompt.
func NewService(cat *Catalog, gen Generator, validate *validator.Validate, logger core.Logger) (*Service, error) {
	svc := &Service{env: &env{gen: gen, validate: validate, logger: logger}}

	var err error
	if svc.chat, err = newDefinition[ChatInput, ChatOutput](cat, NameGenerateResponse); err != nil {
		return nil, err
	}
	if svc.chatTitle, err = newDefinition[ChatTitleInput, ChatTitleOutput](cat, NameSummarizeChatTitle); err != nil {
		return nil, err
	}
	if svc.quiz, err = newDefinition[QuizInput, QuizOutput](cat, NameGenerateQuiz); err != nil {
		return nil, err
	}
	if svc.practiceQuiz, err = newDefinition[PracticeQuizInput, QuizOutput](cat, NameGeneratePracticeQuiz); err != nil {
		return nil, err
	}
	if svc.paper, err = newDefinition[PaperInput, PaperOutput](cat, NameAnalyzeAndGradePaper); err != nil {
		return nil, err
	}
	if svc.curriculum, err = newDefinition[CurriculumInput, CurriculumOutput](cat, NameCreateCurriculum); err != nil {
		return nil, err
	}
	if svc.assignmentHelp, err = newDefinition[AssignmentHelpInput, AssignmentHelpOutput](cat, NameAssignmentHelp); err != nil {
		return nil, err
	}
	if svc.careerCoach, err = newDefinition[CareerCoachInput, CareerCoachOutput](cat, NameCareerCoach); err != nil {
		return nil, err
	}
	if svc.skillsGuide, err = newDefinition[SkillsGuideInput, SkillsGuideOutput](cat, NameGenerateSkillsGuide); err != nil {
		return nil, err
	}
	if svc.resume, err = newDefinition[ResumeInput, ResumeOutput](cat, NameBuildResume); err != nil {
		return nil, err
	}
	if svc.opportunities, err = newDefinition[OpportunitiesInput, OpportunitiesOutput](cat, NameFindOpportunities); err != nil {
		return nil, err
	}
	if svc.recommendations, err = newDefinition[RecommendationsInput, RecommendationsOutput](cat, NameGenerateRecommendations); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) GenerateResponse(ctx context.Context, in ChatInput) (ChatOutput, error) {
	return s.chat.run(ctx, s.env, in)
}

func (s *Service) SummarizeChatTitle(ctx context.Context, in ChatTitleInput) (ChatTitleOutput, error) {
	return s.chatTitle.run(ctx, s.env, in)
}

func (s *Service) GenerateQuiz(ctx context.Context, in QuizInput) (QuizOutput, error) {
	return s.quiz.run(ctx, s.env, in)
}

func (s *Service) GeneratePracticeQuiz(ctx context.Context, in PracticeQuizInput) (QuizOutput, error) {
	return s.practiceQuiz.run(ctx, s.env, in)
}

func (s *Service) AnalyzeAndGradePaper(ctx context.Context, in PaperInput) (PaperOutput, error) {
	return s.paper.run(ctx, s.env, in)
}

func (s *Service) CreateCurriculum(ctx context.Context, in CurriculumInput) (CurriculumOutput, error) {
	return s.curriculum.run(ctx, s.env, in)
}

func (s *Service) AssignmentHelp(ctx context.Context, in AssignmentHelpInput) (AssignmentHelpOutput, error) {
	return s.assignmentHelp.run(ctx, s.env, in)
}

func (s *Service) CareerCoach(ctx context.Context, in CareerCoachInput) (CareerCoachOutput, error) {
	return s.careerCoach.run(ctx, s.env, in)
}

func (s *Service) SkillsGuide(ctx context.Context, in SkillsGuideInput) (SkillsGuideOutput, error) {
	return s.skillsGuide.run(ctx, s.env, in)
}

func (s *Service) BuildResume(ctx context.Context, in ResumeInput) (ResumeOutput, error) {
	return s.resume.run(ctx, s.env, in)
}

func (s *Service) FindOpportunities(ctx context.Context, in OpportunitiesInput) (OpportunitiesOutput, error) {
	in.applyDefaults()
	return s.opportunities.run(ctx, s.env, in)
}

func (s *Service) GenerateRecommendations(ctx context.Context, in RecommendationsInput) (RecommendationsOutput, error) {
	return s.recommendations.run(ctx, s.env, in)
}

// ScorePracticeQuiz validates a submitted practice quiz and grades it.
func (s *Service) ScorePracticeQuiz(in PracticeAnswers) (QuizScore, error) {
	if err := s.env.validate.Struct(in); err != nil {
		return QuizScore{}, err
	}
	return ScorePracticeQuiz(in.Quiz, in.Answers), nil
}

// Schemas maps every flow name to its output schema.
func (s *Service) Schemas() map[string]*Schema {
	return map[string]*Schema{
		s.chat.Name():            s.chat.Schema(),
		s.chatTitle.Name():       s.chatTitle.Schema(),
		s.quiz.Name():            s.quiz.Schema(),
		s.practiceQuiz.Name():    s.practiceQuiz.Schema(),
		s.paper.Name():           s.paper.Schema(),
		s.curriculum.Name():      s.curriculum.Schema(),
		s.assignmentHelp.Name():  s.assignmentHelp.Schema(),
		s.careerCoach.Name():     s.careerCoach.Schema(),
		s.skillsGuide.Name():     s.skillsGuide.Schema(),
		s.resume.Name():          s.resume.Schema(),
		s.opportunities.Name():   s.opportunities.Schema(),
		s.recommendations.Name(): s.recommendations.Schema(),
	}
}
