package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	l := NewRollbarLogger(zap.New(obs), "API", core.NewTestConfig())
	l.Enable(false)

	usr := user.User{ID: "u1", Email: "awe@test.cd", Role: user.RoleStudent}
	l.Error("generating quiz", errors.New("boom"), usr, map[string]interface{}{"flow": "generateQuiz"})
	l.Info("started")

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "API", entries[0].LoggerName)
		assert.Equal(t, "generating quiz", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "u1", ctx["user_id"])
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "generateQuiz", ctx["flow"])
		assert.Equal(t, "started", entries[1].Message)
	}
}
