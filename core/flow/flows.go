package flow

import "strings"

// Flow names, as keyed in the prompt catalog.
const (
	NameGenerateResponse        = "generateResponse"
	NameSummarizeChatTitle      = "summarizeChatTitle"
	NameGenerateQuiz            = "generateQuiz"
	NameGeneratePracticeQuiz    = "generatePracticeQuiz"
	NameAnalyzeAndGradePaper    = "analyzeAndGradePaper"
	NameCreateCurriculum        = "createCurriculum"
	NameAssignmentHelp          = "assignmentHelp"
	NameCareerCoach             = "careerCoach"
	NameGenerateSkillsGuide     = "generateSkillsGuide"
	NameBuildResume             = "buildResumeAndCoverLetter"
	NameFindOpportunities       = "findOpportunities"
	NameGenerateRecommendations = "generateRecommendations"
)

// Chat

type (
	ChatInput struct {
		Prompt string `json:"prompt" validate:"required"`
	}

	ChatOutput struct {
		Response string `json:"response" validate:"notblank" desc:"The AI's response to the user's prompt."`
	}

	ChatTitleInput struct {
		ConversationSnippet string `json:"conversationSnippet" validate:"required"`
	}

	ChatTitleOutput struct {
		Title string `json:"title" validate:"notblank" desc:"A concise title for the conversation, 3-5 words long."`
	}
)

// Quizzes

type (
	QuizInput struct {
		Topic        string `json:"topic" validate:"required"`
		NumQuestions int    `json:"numQuestions" validate:"min=1,max=20"`
		Difficulty   string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	}

	// PracticeQuizInput is the student self-test variant: longer topics, shorter quizzes.
	PracticeQuizInput struct {
		Topic        string `json:"topic" validate:"required,min=3"`
		NumQuestions int    `json:"numQuestions" validate:"min=1,max=10"`
		Difficulty   string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	}

	QuizQuestion struct {
		Question string   `json:"question" validate:"notblank" desc:"The quiz question."`
		Options  []string `json:"options" validate:"min=2,dive,notblank" desc:"The possible answers."`
		Answer   string   `json:"answer" validate:"notblank" desc:"The correct answer. Must be exactly one of the options."`
	}

	QuizOutput struct {
		Quiz []QuizQuestion `json:"quiz" validate:"min=1,dive" desc:"The generated quiz questions."`
	}
)

// Teacher tools

type (
	PaperInput struct {
		PaperText              string `json:"paperText" validate:"required"`
		AssignmentInstructions string `json:"assignmentInstructions" validate:"required"`
		GradingRubric          string `json:"gradingRubric" validate:"required"`
		AdditionalContext      string `json:"additionalContext,omitempty"`
	}

	PaperOutput struct {
		Grade          string `json:"grade" validate:"notblank" desc:"The grade assigned to the paper."`
		Feedback       string `json:"feedback" validate:"notblank" desc:"Detailed feedback on the paper."`
		ScoreBreakdown string `json:"scoreBreakdown,omitempty" desc:"A breakdown of the score based on the grading rubric."`
		Suggestions    string `json:"suggestions,omitempty" desc:"Suggestions for improvement."`
	}

	CurriculumInput struct {
		Subject            string `json:"subject" validate:"required"`
		LearningObjectives string `json:"learningObjectives" validate:"required"`
	}

	CurriculumModule struct {
		ModuleNumber int      `json:"moduleNumber" validate:"min=1" desc:"The sequential number of the module."`
		ModuleTitle  string   `json:"moduleTitle" validate:"notblank" desc:"The title of the module."`
		Topics       []string `json:"topics" validate:"required,dive,notblank" desc:"Key topics covered in this module."`
		Activities   []string `json:"activities" validate:"required,dive,notblank" desc:"Suggested activities or assignments for this module."`
	}

	CurriculumOutput struct {
		Title              string             `json:"title" validate:"notblank" desc:"The main title of the curriculum."`
		Description        string             `json:"description" validate:"notblank" desc:"A brief overview of the curriculum."`
		LearningObjectives []string           `json:"learning_objectives" validate:"min=1,dive,notblank" desc:"3-5 high-level learning objectives."`
		Modules            []CurriculumModule `json:"modules" validate:"min=1,dive" desc:"3-5 curriculum modules."`
	}
)

// Student tools

type (
	AssignmentHelpInput struct {
		AssignmentDetails string `json:"assignmentDetails" validate:"required"`
		StudentLevel      string `json:"studentLevel" validate:"required"`
		SpecificQuestion  string `json:"specificQuestion,omitempty"`
	}

	AssignmentHelpOutput struct {
		Explanation string `json:"explanation" validate:"notblank" desc:"An explanation of the relevant concepts or problems."`
		Suggestions string `json:"suggestions" validate:"notblank" desc:"Suggestions and guidance for completing the assignment."`
		Hint        string `json:"hint,omitempty" desc:"A hint for a student who is stuck, without giving the answer away."`
	}

	CareerCoachInput struct {
		CurrentSkills            string `json:"currentSkills" validate:"required"`
		Interests                string `json:"interests" validate:"required"`
		WorkExperience           string `json:"workExperience,omitempty"`
		CareerAspirations        string `json:"careerAspirations" validate:"required"`
		PreferredWorkEnvironment string `json:"preferredWorkEnvironment,omitempty"`
	}

	CareerCoachOutput struct {
		SuggestedCareerPaths string `json:"suggestedCareerPaths" validate:"notblank" desc:"3-5 career paths that fit the profile."`
		SkillsToDevelop      string `json:"skillsToDevelop" validate:"notblank" desc:"Key skills to prioritize."`
		ActionableSteps      string `json:"actionableSteps" validate:"notblank" desc:"Concrete next steps."`
	}

	SkillsGuideInput struct {
		CurrentSkills           string `json:"currentSkills" validate:"required"`
		DesiredSkills           string `json:"desiredSkills" validate:"required"`
		CareerGoal              string `json:"careerGoal,omitempty"`
		LearningStylePreference string `json:"learningStylePreference,omitempty"`
		TimeCommitment          string `json:"timeCommitment,omitempty"`
	}

	SkillsGuideOutput struct {
		SkillsAnalysis          string `json:"skillsAnalysis" validate:"notblank" desc:"Analysis of the gap between current and desired skills."`
		LearningPathSuggestions string `json:"learningPathSuggestions" validate:"notblank" desc:"A structured learning path."`
		RecommendedResources    string `json:"recommendedResources" validate:"notblank" desc:"Specific learning resources."`
		MilestonesAndTimeline   string `json:"milestonesAndTimeline,omitempty" desc:"Milestones and a flexible timeline."`
	}

	ResumeInput struct {
		FullName       string `json:"fullName" validate:"required"`
		ContactInfo    string `json:"contactInfo" validate:"required"`
		WorkExperience string `json:"workExperience" validate:"required"`
		Education      string `json:"education" validate:"required"`
		Skills         string `json:"skills" validate:"required"`
		JobDescription string `json:"jobDescription" validate:"required"`
	}

	ResumeOutput struct {
		ResumeContent      string `json:"resumeContent" validate:"notblank" desc:"The resume, in Markdown."`
		CoverLetterContent string `json:"coverLetterContent" validate:"notblank" desc:"The tailored cover letter."`
	}

	OpportunitiesInput struct {
		FieldOfStudy    string `json:"fieldOfStudy" validate:"required"`
		Interests       string `json:"interests" validate:"required"`
		OpportunityType string `json:"opportunityType" validate:"omitempty,oneof=scholarship internship"`
		Location        string `json:"location,omitempty"`
	}

	Opportunity struct {
		Title        string `json:"title" validate:"notblank" desc:"The name of the scholarship or internship."`
		Organization string `json:"organization" validate:"notblank" desc:"The offering organization."`
		Type         string `json:"type" validate:"notblank" desc:"Scholarship or Internship."`
		Description  string `json:"description" validate:"notblank" desc:"Why this opportunity fits the user."`
		URL          string `json:"url" validate:"required,url" desc:"A real, verifiable URL."`
	}

	OpportunitiesOutput struct {
		Opportunities []Opportunity `json:"opportunities" validate:"min=1,dive" desc:"3-5 opportunities."`
	}

	RecommendationsInput struct {
		LearningGoals      string `json:"learningGoals" validate:"required"`
		CurrentKnowledge   string `json:"currentKnowledge,omitempty"`
		RecommendationType string `json:"recommendationType" validate:"required,oneof=web_resources education_programs"`
	}

	Recommendation struct {
		Title       string `json:"title" validate:"notblank" desc:"The title of the resource or program."`
		Type        string `json:"type" validate:"notblank" desc:"The kind of resource, e.g. Online Course or Degree Program."`
		URL         string `json:"url" validate:"required,url" desc:"A real, verifiable URL."`
		Description string `json:"description" validate:"notblank" desc:"Why this resource fits the user's goals."`
	}

	RecommendationsOutput struct {
		Recommendations []Recommendation `json:"recommendations" validate:"min=1,dive" desc:"3-5 recommendations."`
	}
)

// applyDefaults fills in the default opportunity type.
func (in *OpportunitiesInput) applyDefaults() {
	if strings.TrimSpace(in.OpportunityType) == "" {
		in.OpportunityType = "scholarship"
	}
}
