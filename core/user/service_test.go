package user_test

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutortrack/assets"
	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
	emailsvc "github.com/trezcool/tutortrack/services/email"
	inmemdb "github.com/trezcool/tutortrack/storage/inmem"
	"github.com/trezcool/tutortrack/testutil"
)

var linkRe = regexp.MustCompile(`uid=([^&\s]+)&token=([^\s"<]+)`)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		types = append(types, evt.Type)
	}
	return types
}

type fakeVerifier struct {
	idents map[string]user.FederatedIdentity
}

func (v fakeVerifier) Verify(_ context.Context, idToken string) (user.FederatedIdentity, error) {
	if ident, ok := v.idents[idToken]; ok {
		return ident, nil
	}
	return user.FederatedIdentity{}, user.ErrInvalidIDToken
}

type testEnv struct {
	svc      user.Service
	accounts user.AccountRepository
	sessions user.SessionRepository
	roles    user.RoleStore
	mail     *emailsvc.ConsoleServiceMock
	events   *recordingPublisher
}

func setup(t *testing.T, idents ...user.FederatedIdentity) *testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(assets.EmailTemplates, assets.EmailTemplatesDir, conf))

	logger := testutil.NewLogger()
	db := inmemdb.Open()
	verifier := fakeVerifier{idents: make(map[string]user.FederatedIdentity)}
	for _, ident := range idents {
		verifier.idents[ident.Subject] = ident
	}

	env := &testEnv{
		accounts: inmemdb.NewAccountRepository(db),
		sessions: inmemdb.NewSessionRepository(db),
		roles:    inmemdb.NewRoleStore(db),
		mail:     emailsvc.NewConsoleServiceMock(conf, logger),
		events:   new(recordingPublisher),
	}
	env.svc = user.NewService(user.Deps{
		Accounts: env.accounts,
		Sessions: env.sessions,
		Roles:    env.roles,
		Mail:     env.mail,
		Events:   env.events,
		Verifier: verifier,
		Logger:   logger,
		Conf:     conf,
	})
	return env
}

// lastLink returns the uid & token of the last email sent.
func (env *testEnv) lastLink(t *testing.T) (string, string) {
	t.Helper()
	sent := env.mail.SentMessages()
	require.NotEmpty(t, sent)
	m := linkRe.FindStringSubmatch(sent[len(sent)-1].TextContent)
	require.Len(t, m, 3, "no link in %q", sent[len(sent)-1].TextContent)
	return m[1], m[2]
}

func isValidationErr(err, want error) bool {
	verr, ok := errors.Cause(err).(*core.ValidationError)
	return ok && verr.Err == want
}

func TestService_SignUp(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr, sess, err := env.svc.SignUp(ctx, user.SignUpRequest{Email: "kim@test.cd", Password: "s3cr3t-pwd", Role: user.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, "kim", usr.DisplayName)
	assert.Equal(t, user.ProviderPassword, usr.Provider)

	got, err := env.svc.ValidateSession(ctx, sess.ID, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	doc, err := env.roles.GetRole(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleStudent, doc.Role)

	sent := env.mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "verify_email", sent[0].TemplateName)
	assert.Equal(t, []string{core.EventSignedUp}, env.events.types())

	t.Run("email taken", func(t *testing.T) {
		_, _, err := env.svc.SignUp(ctx, user.SignUpRequest{Email: "kim@test.cd", Password: "s3cr3t-pwd", Role: user.RoleTeacher})
		assert.True(t, isValidationErr(err, user.ErrEmailExists), "got %v", err)
	})
	t.Run("role required", func(t *testing.T) {
		_, _, err := env.svc.SignUp(ctx, user.SignUpRequest{Email: "new@test.cd", Password: "s3cr3t-pwd"})
		assert.True(t, isValidationErr(err, user.ErrRoleRequired), "got %v", err)
		_, err = env.accounts.GetAccountByEmail(ctx, "new@test.cd")
		assert.Equal(t, user.ErrNotFound, err, "no account is created without a role")
	})
}

func TestService_SignIn(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.accounts, env.roles, "student@test.cd", "s3cr3t-pwd", user.RoleStudent)
	testutil.CreateUser(t, env.accounts, env.roles, "norole@test.cd", "s3cr3t-pwd", "")
	naughty := testutil.CreateUser(t, env.accounts, env.roles, "naughty@test.cd", "s3cr3t-pwd", user.RoleStudent)
	naughty.IsActive = false
	_, err := env.accounts.UpdateAccount(ctx, naughty)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     user.SignInRequest
		wantErr error
	}{
		{name: "unknown email", req: user.SignInRequest{Email: "who@test.cd", Password: "s3cr3t-pwd"}, wantErr: user.ErrInvalidCredential},
		{name: "wrong password", req: user.SignInRequest{Email: "student@test.cd", Password: "nope"}, wantErr: user.ErrInvalidCredential},
		{name: "deactivated", req: user.SignInRequest{Email: "naughty@test.cd", Password: "s3cr3t-pwd"}, wantErr: user.ErrAccountDeactivated},
		{name: "no role document", req: user.SignInRequest{Email: "norole@test.cd", Password: "s3cr3t-pwd"}, wantErr: user.ErrProfileIncomplete},
		{name: "signed in", req: user.SignInRequest{Email: "student@test.cd", Password: "s3cr3t-pwd"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			usr, sess, err := env.svc.SignIn(ctx, tt.req)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.RoleStudent, usr.Role)
			assert.False(t, usr.LastLogin.IsZero())
			assert.NotEmpty(t, sess.ID)
		})
	}
}

func TestService_SignInFederated(t *testing.T) {
	newcomer := user.FederatedIdentity{Provider: user.ProviderGoogle, Subject: "g-1", Email: "New@Gmail.com", EmailVerified: true, Name: "New Comer"}
	linked := user.FederatedIdentity{Provider: user.ProviderGoogle, Subject: "g-2", Email: "student@test.cd", EmailVerified: true}
	unverified := user.FederatedIdentity{Provider: user.ProviderGoogle, Subject: "g-3", Email: "Student@test.cd"}
	env := setup(t, newcomer, linked, unverified)
	ctx := context.Background()
	student := testutil.CreateUser(t, env.accounts, env.roles, "student@test.cd", "s3cr3t-pwd", user.RoleStudent)

	_, _, err := env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "forged", Mode: user.ModeSignIn})
	assert.Equal(t, user.ErrInvalidIDToken, err)

	// signing in without a role document fails, but the identity record exists from now on
	_, _, err = env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-1", Mode: user.ModeSignIn})
	assert.Equal(t, user.ErrAccountNotFound, err)
	acc, err := env.accounts.GetAccountByProviderSubject(ctx, user.ProviderGoogle, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "new@gmail.com", acc.Email)

	_, _, err = env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-1", Mode: user.ModeSignUp})
	assert.True(t, isValidationErr(err, user.ErrRoleRequired), "got %v", err)

	usr, _, err := env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-1", Mode: user.ModeSignUp, Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, acc.ID, usr.ID)
	assert.Equal(t, user.RoleTeacher, usr.Role)
	assert.Equal(t, "New Comer", usr.DisplayName)

	// a verified email links to the existing account
	usr, _, err = env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-2", Mode: user.ModeSignIn})
	require.NoError(t, err)
	assert.Equal(t, student.ID, usr.ID)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.True(t, usr.EmailVerified)

	acc, err = env.accounts.GetAccountByProviderSubject(ctx, user.ProviderGoogle, "g-2")
	require.NoError(t, err, "linked identity must be found by provider & subject")
	assert.Equal(t, student.ID, acc.ID)

	usr, _, err = env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-2", Mode: user.ModeSignIn})
	require.NoError(t, err)
	assert.Equal(t, student.ID, usr.ID)

	_, _, err = env.svc.SignIn(ctx, user.SignInRequest{Email: "student@test.cd", Password: "s3cr3t-pwd"})
	assert.NoError(t, err, "password sign-in survives linking")

	// an unverified email never takes over an existing account
	_, _, err = env.svc.SignInFederated(ctx, user.FederatedSignInRequest{IDToken: "g-3", Mode: user.ModeSignUp, Role: user.RoleStudent})
	assert.True(t, isValidationErr(err, user.ErrEmailExists), "got %v", err)
	_, err = env.accounts.GetAccountByProviderSubject(ctx, user.ProviderGoogle, "g-3")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_guest(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, _, err := env.svc.StartGuest(ctx, "admin")
	assert.True(t, isValidationErr(err, nil), "got %v", err)

	guest, sess, err := env.svc.StartGuest(ctx, user.RoleTeacher)
	require.NoError(t, err)
	assert.True(t, guest.IsAnonymous)
	assert.Equal(t, "Guest", guest.DisplayName)
	assert.Equal(t, user.RoleTeacher, guest.Role)

	upgraded, _, err := env.svc.SignUp(ctx, user.SignUpRequest{Email: "guest@test.cd", Password: "s3cr3t-pwd", GuestID: guest.ID})
	require.NoError(t, err)
	assert.Equal(t, guest.ID, upgraded.ID)
	assert.False(t, upgraded.IsAnonymous)
	assert.Equal(t, user.RoleTeacher, upgraded.Role)

	// the guest session survives the upgrade
	_, err = env.svc.ValidateSession(ctx, sess.ID, guest.ID)
	assert.NoError(t, err)

	_, _, err = env.svc.SignUp(ctx, user.SignUpRequest{Email: "other@test.cd", Password: "s3cr3t-pwd", GuestID: guest.ID})
	assert.True(t, isValidationErr(err, user.ErrNotAGuest), "got %v", err)

	assert.Equal(t, []string{core.EventGuestStarted, core.EventUpgraded}, env.events.types())
}

func TestService_sessions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.accounts, env.roles, "student@test.cd", "s3cr3t-pwd", user.RoleStudent)
	other := testutil.CreateUser(t, env.accounts, env.roles, "other@test.cd", "s3cr3t-pwd", user.RoleStudent)

	usr, sess, err := env.svc.SignIn(ctx, user.SignInRequest{Email: "student@test.cd", Password: "s3cr3t-pwd"})
	require.NoError(t, err)

	_, err = env.svc.ValidateSession(ctx, sess.ID, other.ID)
	assert.Equal(t, user.ErrSessionNotFound, err, "sessions belong to one user")

	// role changes are seen by the next request
	_, err = env.svc.SetRole(ctx, usr.ID, user.RoleTeacher)
	require.NoError(t, err)
	got, err := env.svc.ValidateSession(ctx, sess.ID, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, got.Role)

	require.NoError(t, env.svc.Logout(ctx, sess.ID))
	_, err = env.svc.ValidateSession(ctx, sess.ID, usr.ID)
	assert.Equal(t, user.ErrSessionNotFound, err)
	assert.NoError(t, env.svc.Logout(ctx, sess.ID), "logging out twice is a no-op")
}

func TestService_ResetPassword(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	acc := testutil.CreateUser(t, env.accounts, env.roles, "student@test.cd", "s3cr3t-pwd", user.RoleStudent)
	_, sess, err := env.svc.SignIn(ctx, user.SignInRequest{Email: "student@test.cd", Password: "s3cr3t-pwd"})
	require.NoError(t, err)

	assert.Equal(t, user.ErrNotFound, errors.Cause(env.svc.RequestPasswordReset(ctx, "who@test.cd")))
	require.NoError(t, env.svc.RequestPasswordReset(ctx, " STUDENT@test.cd "))
	uid, token := env.lastLink(t)
	assert.Equal(t, user.EncodeUID(acc), uid)

	err = env.svc.ResetPassword(ctx, user.ResetPasswordRequest{UID: uid, Token: "bad-token", Password: "n3w-s3cr3t", PasswordConfirm: "n3w-s3cr3t"})
	assert.True(t, isValidationErr(err, user.ErrInvalidToken), "got %v", err)

	req := user.ResetPasswordRequest{UID: uid, Token: token, Password: "n3w-s3cr3t", PasswordConfirm: "n3w-s3cr3t"}
	require.NoError(t, env.svc.ResetPassword(ctx, req))

	_, _, err = env.svc.SignIn(ctx, user.SignInRequest{Email: "student@test.cd", Password: "n3w-s3cr3t"})
	assert.NoError(t, err)
	_, err = env.svc.ValidateSession(ctx, sess.ID, acc.ID)
	assert.Equal(t, user.ErrSessionNotFound, err, "resetting signs out everywhere")

	// tokens are single use: the password hash changed
	err = env.svc.ResetPassword(ctx, req)
	assert.True(t, isValidationErr(err, user.ErrInvalidToken), "got %v", err)
}

func TestService_VerifyEmail(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr, _, err := env.svc.SignUp(ctx, user.SignUpRequest{Email: "kim@test.cd", Password: "s3cr3t-pwd", Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.False(t, usr.EmailVerified)

	// resending mails a fresh link
	require.NoError(t, env.svc.SendVerification(ctx, usr.ID))
	require.Len(t, env.mail.SentMessages(), 2)
	uid, token := env.lastLink(t)

	// signing in does not invalidate the link
	_, _, err = env.svc.SignIn(ctx, user.SignInRequest{Email: "kim@test.cd", Password: "s3cr3t-pwd"})
	require.NoError(t, err)

	require.NoError(t, env.svc.VerifyEmail(ctx, user.VerifyEmailRequest{UID: uid, Token: token}))
	got, err := env.svc.GetUser(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)

	err = env.svc.VerifyEmail(ctx, user.VerifyEmailRequest{UID: uid, Token: token})
	assert.True(t, isValidationErr(err, user.ErrInvalidToken), "got %v", err)

	// verified accounts get no more mails
	env.mail.Reset()
	require.NoError(t, env.svc.SendVerification(ctx, usr.ID))
	assert.Empty(t, env.mail.SentMessages())

	guest, _, err := env.svc.StartGuest(ctx, user.RoleStudent)
	require.NoError(t, err)
	assert.Error(t, env.svc.SendVerification(ctx, guest.ID))
}

func TestService_AddUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	created, err := env.svc.AddUser(ctx, " Admin@Test.cd ", "s3cr3t-pwd", user.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "admin@test.cd", created.Email)
	assert.Equal(t, user.RoleTeacher, created.Role)

	updated, err := env.svc.AddUser(ctx, "admin@test.cd", "n3w-s3cr3t", user.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, user.RoleStudent, updated.Role)

	usr, _, err := env.svc.SignIn(ctx, user.SignInRequest{Email: "admin@test.cd", Password: "n3w-s3cr3t"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, usr.ID)

	assert.Equal(t, user.ErrNotFound, env.svc.SetPassword(ctx, "who@test.cd", "pwd"))
}
