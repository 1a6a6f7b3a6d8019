package echoapi_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutortrack/core/flow"
	"github.com/trezcool/tutortrack/core/user"
)

var sampleCurriculum = flow.CurriculumOutput{
	Title:              "Intro to Chemistry",
	Description:        "A first look at matter.",
	LearningObjectives: []string{"Describe atoms", "Balance equations"},
	Modules: []flow.CurriculumModule{{
		ModuleNumber: 1,
		ModuleTitle:  "Atoms",
		Topics:       []string{"Protons", "Electrons"},
		Activities:   []string{"Build a model atom"},
	}},
}

func Test_exportApi_export(t *testing.T) {
	env := setup(t)
	teacher := env.getToken(t, env.createUser(t, "teacher@test.cd", user.RoleTeacher))
	body := marshallObj(t, sampleCurriculum)

	tests := []struct {
		name      string
		query     string
		wantCT    string
		wantMagic []byte
		wantName  string
	}{
		{name: "Default PDF", query: "", wantCT: "application/pdf", wantMagic: []byte("%PDF"), wantName: `"Intro_to_Chemistry.pdf"`},
		{name: "PDF", query: "?format=pdf", wantCT: "application/pdf", wantMagic: []byte("%PDF"), wantName: `"Intro_to_Chemistry.pdf"`},
		{
			name: "DOCX", query: "?format=docx",
			wantCT:    "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			wantMagic: []byte("PK"), wantName: `"Intro_to_Chemistry.docx"`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/curriculum/export"+tt.query, teacher, body)
			env.app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCT, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), tt.wantName)
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), tt.wantMagic))
		})
	}

	runHTTPTests(t, env.app, []httpTest{
		{
			name: "Unknown format", method: http.MethodPost, path: "/v1/teacher/curriculum/export?format=odt", token: teacher, body: body,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "format must be one of: pdf, docx"}),
		},
		{
			name: "Invalid curriculum", method: http.MethodPost, path: "/v1/teacher/curriculum/export", token: teacher,
			body: []byte(`{"title":"Empty","description":"Nothing","learning_objectives":[],"modules":[]}`), wantCode: http.StatusBadRequest,
		},
	})
}

func Test_exportApi_email(t *testing.T) {
	env := setup(t)
	teacher := env.createUser(t, "teacher@test.cd", user.RoleTeacher)
	token := env.getToken(t, teacher)

	env.mail.Reset()
	req, rec := newAuthRequest(http.MethodPost, "/v1/teacher/curriculum/email?format=docx", token, marshallObj(t, sampleCurriculum))
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	sent := env.mail.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "curriculum", msg.TemplateName)
	assert.Equal(t, "teacher@test.cd", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "Intro to Chemistry")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Intro_to_Chemistry.docx", msg.Attachments[0].Filename)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Content, []byte("PK")))
}
