// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

// CreateUser stores an active password account and, when role is set, its role document.
func CreateUser(
	t *testing.T,
	accounts user.AccountRepository,
	roles user.RoleStore,
	email, pwd string,
	role user.Role,
) user.Account {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	acc := user.Account{
		ID:        uuid.NewString(),
		Email:     email,
		Provider:  user.ProviderPassword,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := acc.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	acc, err := accounts.CreateAccount(ctx, acc)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if role != "" {
		if _, err = roles.SetRole(ctx, acc.ID, role); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return acc
}

// Logger is a core.Logger that records messages in memory.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return new(Logger) }

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s", level, msg))
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }
