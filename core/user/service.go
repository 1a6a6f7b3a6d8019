package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
)

type (
	AccountRepository interface {
		CreateAccount(ctx context.Context, acc Account) (Account, error)
		GetAccountByID(ctx context.Context, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, email string) (Account, error)
		GetAccountByProviderSubject(ctx context.Context, provider, subject string) (Account, error)
		UpdateAccount(ctx context.Context, acc Account) (Account, error)
	}

	SessionRepository interface {
		CreateSession(ctx context.Context, sess Session) error
		GetSession(ctx context.Context, id string) (Session, error)
		DeleteSession(ctx context.Context, id string) error
		DeleteUserSessions(ctx context.Context, userID string) error
	}

	// RoleStore persists one RoleDocument per user id.
	RoleStore interface {
		GetRole(ctx context.Context, userID string) (RoleDocument, error)
		// SetRole creates or replaces the user's role document.
		SetRole(ctx context.Context, userID string, role Role) (RoleDocument, error)
	}

	Service interface {
		SignUp(ctx context.Context, req SignUpRequest) (User, Session, error)
		SignIn(ctx context.Context, req SignInRequest) (User, Session, error)
		SignInFederated(ctx context.Context, req FederatedSignInRequest) (User, Session, error)
		StartGuest(ctx context.Context, role Role) (User, Session, error)
		SetRole(ctx context.Context, uid string, role Role) (User, error)
		GetUser(ctx context.Context, uid string) (User, error)
		ValidateSession(ctx context.Context, sid, uid string) (User, error)
		Logout(ctx context.Context, sid string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, req ResetPasswordRequest) error
		VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
		SendVerification(ctx context.Context, uid string) error
		AddUser(ctx context.Context, email, pwd string, role Role) (User, error)
		SetPassword(ctx context.Context, email, pwd string) error
	}

	Deps struct {
		Accounts AccountRepository
		Sessions SessionRepository
		Roles    RoleStore
		Mail     core.EmailService
		Events   core.EventPublisher // optional
		Verifier FederatedVerifier   // optional; federated sign-in is disabled without it
		Logger   core.Logger
		Conf     *core.Config
	}

	service struct {
		Deps
		tokens tokenGenerator
	}

	mailData struct {
		Name  string
		UID   string
		Token string
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	return &service{
		Deps: deps,
		tokens: tokenGenerator{
			secret:  deps.Conf.SecretKey,
			timeout: deps.Conf.PasswordResetTimeoutDelta,
		},
	}
}

func (svc *service) SignUp(ctx context.Context, req SignUpRequest) (User, Session, error) {
	if err := svc.checkEmailUniqueness(ctx, req.Email); err != nil {
		return User{}, Session{}, err
	}
	if req.GuestID != "" {
		return svc.upgradeGuest(ctx, req)
	}
	if !req.Role.Valid() {
		return User{}, Session{}, core.NewValidationError(ErrRoleRequired)
	}

	now := time.Now().UTC()
	acc := Account{
		ID:          uuid.NewString(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Provider:    ProviderPassword,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLogin:   now,
	}
	if err := acc.SetPassword(req.Password); err != nil {
		return User{}, Session{}, errors.Wrap(err, "setting password")
	}
	acc, err := svc.Accounts.CreateAccount(ctx, acc)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, Session{}, emailExistsError()
		}
		return User{}, Session{}, errors.Wrap(err, "creating account")
	}
	doc, err := svc.Roles.SetRole(ctx, acc.ID, req.Role)
	if err != nil {
		return User{}, Session{}, errors.Wrap(err, "writing role document")
	}

	sess, err := svc.newSession(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	svc.sendVerificationMail(acc)
	svc.publish(ctx, core.NewEvent(core.EventSignedUp, acc.ID, doc.Role.String()))
	return NewUser(acc, doc.Role), sess, nil
}

// upgradeGuest links an email/password credential to an anonymous account. The uid and role document are kept.
func (svc *service) upgradeGuest(ctx context.Context, req SignUpRequest) (User, Session, error) {
	acc, err := svc.Accounts.GetAccountByID(ctx, req.GuestID)
	if err != nil {
		return User{}, Session{}, errors.Wrap(err, "finding guest account")
	}
	if !acc.IsAnonymous {
		return User{}, Session{}, core.NewValidationError(ErrNotAGuest)
	}

	acc.Email = req.Email
	acc.DisplayName = req.DisplayName
	acc.Provider = ProviderPassword
	acc.IsAnonymous = false
	acc.UpdatedAt = time.Now().UTC()
	if err = acc.SetPassword(req.Password); err != nil {
		return User{}, Session{}, errors.Wrap(err, "setting password")
	}
	if acc, err = svc.Accounts.UpdateAccount(ctx, acc); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, Session{}, emailExistsError()
		}
		return User{}, Session{}, errors.Wrap(err, "updating account")
	}

	role, err := svc.getRole(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	if role == "" && req.Role.Valid() {
		doc, err := svc.Roles.SetRole(ctx, acc.ID, req.Role)
		if err != nil {
			return User{}, Session{}, errors.Wrap(err, "writing role document")
		}
		role = doc.Role
	}

	sess, err := svc.newSession(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	svc.sendVerificationMail(acc)
	svc.publish(ctx, core.NewEvent(core.EventUpgraded, acc.ID, role.String()))
	return NewUser(acc, role), sess, nil
}

func (svc *service) SignIn(ctx context.Context, req SignInRequest) (User, Session, error) {
	acc, err := svc.Accounts.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, Session{}, ErrInvalidCredential
		}
		return User{}, Session{}, errors.Wrap(err, "finding account by email")
	}
	if err = acc.CheckPassword(req.Password); err != nil {
		return User{}, Session{}, ErrInvalidCredential
	}
	if !acc.IsActive {
		return User{}, Session{}, ErrAccountDeactivated
	}

	role, err := svc.getRole(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	if role == "" {
		return User{}, Session{}, ErrProfileIncomplete
	}
	return svc.startSession(ctx, acc, role)
}

func (svc *service) SignInFederated(ctx context.Context, req FederatedSignInRequest) (User, Session, error) {
	if svc.Verifier == nil {
		return User{}, Session{}, ErrInvalidIDToken
	}
	ident, err := svc.Verifier.Verify(ctx, req.IDToken)
	if err != nil {
		if errors.Cause(err) == ErrInvalidIDToken {
			return User{}, Session{}, ErrInvalidIDToken
		}
		return User{}, Session{}, errors.Wrap(err, "verifying id token")
	}

	acc, err := svc.findOrCreateFederated(ctx, ident)
	if err != nil {
		return User{}, Session{}, err
	}
	if !acc.IsActive {
		return User{}, Session{}, ErrAccountDeactivated
	}

	role, err := svc.getRole(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	if role == "" {
		if req.Mode != ModeSignUp {
			return User{}, Session{}, ErrAccountNotFound
		}
		if !req.Role.Valid() {
			return User{}, Session{}, core.NewValidationError(ErrRoleRequired)
		}
		doc, err := svc.Roles.SetRole(ctx, acc.ID, req.Role)
		if err != nil {
			return User{}, Session{}, errors.Wrap(err, "writing role document")
		}
		role = doc.Role
		svc.publish(ctx, core.NewEvent(core.EventSignedUp, acc.ID, role.String()))
	}
	return svc.startSession(ctx, acc, role)
}

func (svc *service) findOrCreateFederated(ctx context.Context, ident FederatedIdentity) (Account, error) {
	acc, err := svc.Accounts.GetAccountByProviderSubject(ctx, ident.Provider, ident.Subject)
	if err == nil {
		return acc, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Account{}, errors.Wrap(err, "finding account by provider subject")
	}

	// link to an existing account with the same verified email
	if ident.Email != "" && ident.EmailVerified {
		acc, err = svc.Accounts.GetAccountByEmail(ctx, core.CleanString(ident.Email, true /* lower */))
		if err == nil {
			// the password hash is kept: both sign-in methods keep working
			acc.Provider = ident.Provider
			acc.ProviderSubject = ident.Subject
			acc.EmailVerified = true
			acc.UpdatedAt = time.Now().UTC()
			acc, err = svc.Accounts.UpdateAccount(ctx, acc)
			return acc, errors.Wrap(err, "linking federated identity")
		}
		if errors.Cause(err) != ErrNotFound {
			return Account{}, errors.Wrap(err, "finding account by email")
		}
	}

	now := time.Now().UTC()
	acc = Account{
		ID:              uuid.NewString(),
		Email:           core.CleanString(ident.Email, true /* lower */),
		DisplayName:     ident.Name,
		Provider:        ident.Provider,
		ProviderSubject: ident.Subject,
		EmailVerified:   ident.EmailVerified,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	acc, err = svc.Accounts.CreateAccount(ctx, acc)
	if errors.Cause(err) == ErrEmailExists {
		// unverified emails are never linked to an existing account
		return Account{}, emailExistsError()
	}
	return acc, errors.Wrap(err, "creating federated account")
}

func (svc *service) StartGuest(ctx context.Context, role Role) (User, Session, error) {
	if !role.Valid() {
		return User{}, Session{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}

	now := time.Now().UTC()
	acc, err := svc.Accounts.CreateAccount(ctx, Account{
		ID:          uuid.NewString(),
		Provider:    ProviderAnonymous,
		IsAnonymous: true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLogin:   now,
	})
	if err != nil {
		return User{}, Session{}, errors.Wrap(err, "creating guest account")
	}
	doc, err := svc.Roles.SetRole(ctx, acc.ID, role)
	if err != nil {
		return User{}, Session{}, errors.Wrap(err, "writing role document")
	}

	sess, err := svc.newSession(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	svc.publish(ctx, core.NewEvent(core.EventGuestStarted, acc.ID, doc.Role.String()))
	return NewUser(acc, doc.Role), sess, nil
}

func (svc *service) SetRole(ctx context.Context, uid string, role Role) (User, error) {
	acc, err := svc.Accounts.GetAccountByID(ctx, uid)
	if err != nil {
		return User{}, errors.Wrap(err, "finding account by ID")
	}
	doc, err := svc.Roles.SetRole(ctx, acc.ID, role)
	if err != nil {
		return User{}, errors.Wrap(err, "writing role document")
	}
	svc.publish(ctx, core.NewEvent(core.EventRoleSet, acc.ID, doc.Role.String()))
	return NewUser(acc, doc.Role), nil
}

func (svc *service) GetUser(ctx context.Context, uid string) (User, error) {
	acc, err := svc.Accounts.GetAccountByID(ctx, uid)
	if err != nil {
		return User{}, errors.Wrap(err, "finding account by ID")
	}
	role, err := svc.getRole(ctx, acc.ID)
	if err != nil {
		return User{}, err
	}
	return NewUser(acc, role), nil
}

func (svc *service) ValidateSession(ctx context.Context, sid, uid string) (User, error) {
	sess, err := svc.Sessions.GetSession(ctx, sid)
	if err != nil {
		return User{}, err
	}
	if sess.UserID != uid {
		return User{}, ErrSessionNotFound
	}
	acc, err := svc.Accounts.GetAccountByID(ctx, uid)
	if err != nil {
		return User{}, err
	}
	if !acc.IsActive {
		return User{}, ErrAccountDeactivated
	}
	role, err := svc.getRole(ctx, acc.ID)
	if err != nil {
		return User{}, err
	}
	return NewUser(acc, role), nil
}

func (svc *service) Logout(ctx context.Context, sid string) error {
	sess, err := svc.Sessions.GetSession(ctx, sid)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return nil
		}
		return errors.Wrap(err, "finding session")
	}
	if err = svc.Sessions.DeleteSession(ctx, sid); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	svc.publish(ctx, core.NewEvent(core.EventLoggedOut, sess.UserID, ""))
	return nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.Accounts.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if !acc.IsActive || acc.IsAnonymous {
		return nil
	}
	svc.sendPasswordResetMail(acc)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	acc, err := svc.accountFromToken(ctx, req.UID, req.Token, purposePasswordReset)
	if err != nil {
		return err
	}
	if err = acc.SetPassword(req.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acc.UpdatedAt = time.Now().UTC()
	if _, err = svc.Accounts.UpdateAccount(ctx, acc); err != nil {
		return errors.Wrap(err, "updating account")
	}
	// sign out everywhere
	return errors.Wrap(svc.Sessions.DeleteUserSessions(ctx, acc.ID), "deleting sessions")
}

func (svc *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	acc, err := svc.accountFromToken(ctx, req.UID, req.Token, purposeVerifyEmail)
	if err != nil {
		return err
	}
	acc.EmailVerified = true
	acc.UpdatedAt = time.Now().UTC()
	_, err = svc.Accounts.UpdateAccount(ctx, acc)
	return errors.Wrap(err, "updating account")
}

func (svc *service) SendVerification(ctx context.Context, uid string) error {
	acc, err := svc.Accounts.GetAccountByID(ctx, uid)
	if err != nil {
		return errors.Wrap(err, "finding account by ID")
	}
	if acc.IsAnonymous || acc.Email == "" {
		return core.NewValidationError(errors.New("guest accounts have no email to verify"))
	}
	if !acc.EmailVerified {
		svc.sendVerificationMail(acc)
	}
	return nil
}

// AddUser creates or updates an active password account with the given role.
func (svc *service) AddUser(ctx context.Context, email, pwd string, role Role) (User, error) {
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	acc, err := svc.Accounts.GetAccountByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding account by email")
		}
		acc = Account{ID: uuid.NewString(), Email: email, CreatedAt: now}
	}
	acc.Provider = ProviderPassword
	acc.IsAnonymous = false
	acc.IsActive = true
	acc.UpdatedAt = now
	if err = acc.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	if exists {
		acc, err = svc.Accounts.UpdateAccount(ctx, acc)
	} else {
		acc, err = svc.Accounts.CreateAccount(ctx, acc)
	}
	if err != nil {
		return User{}, errors.Wrap(err, "saving account")
	}
	doc, err := svc.Roles.SetRole(ctx, acc.ID, role)
	if err != nil {
		return User{}, errors.Wrap(err, "writing role document")
	}
	return NewUser(acc, doc.Role), nil
}

func (svc *service) SetPassword(ctx context.Context, email, pwd string) error {
	acc, err := svc.Accounts.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	acc.UpdatedAt = time.Now().UTC()
	_, err = svc.Accounts.UpdateAccount(ctx, acc)
	return errors.Wrap(err, "updating account")
}

func (svc *service) checkEmailUniqueness(ctx context.Context, email string) error {
	_, err := svc.Accounts.GetAccountByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return emailExistsError()
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking email uniqueness")
	}
}

// getRole returns the user's role, or "" when the role document does not exist.
func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *service) getRole(ctx context.Context, uid string) (Role, error) {
	doc, err := svc.Roles.GetRole(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrRoleNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "reading role document")
	}
	return doc.Role, nil
}

func (svc *service) startSession(ctx context.Context, acc Account, role Role) (User, Session, error) {
	acc.LastLogin = time.Now().UTC()
	acc, err := svc.Accounts.UpdateAccount(ctx, acc)
	if err != nil {
		return User{}, Session{}, errors.Wrap(err, "setting lastLogin")
	}
	sess, err := svc.newSession(ctx, acc.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	svc.publish(ctx, core.NewEvent(core.EventSignedIn, acc.ID, role.String()))
	return NewUser(acc, role), sess, nil
}

func (svc *service) newSession(ctx context.Context, uid string) (Session, error) {
	sess := Session{ID: uuid.NewString(), UserID: uid, CreatedAt: time.Now().UTC()}
	if err := svc.Sessions.CreateSession(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	return sess, nil
}

func (svc *service) accountFromToken(ctx context.Context, uid, token, purpose string) (Account, error) {
	invalid := core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})

	id, err := decodeUID(uid)
	if err != nil {
		return Account{}, invalid
	}
	acc, err := svc.Accounts.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, invalid
		}
		return Account{}, errors.Wrap(err, "finding account by ID")
	}
	if err = svc.tokens.verifyToken(acc, purpose, token); err != nil {
		return Account{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	return acc, nil
}

func (svc *service) publish(ctx context.Context, evt core.Event) {
	if svc.Events == nil {
		return
	}
	if err := svc.Events.Publish(ctx, evt); err != nil {
		svc.Logger.Warn(fmt.Sprintf("publishing %s event: %v", evt.Type, err), err)
	}
}

func (svc *service) sendVerificationMail(acc Account) {
	if acc.Email == "" || acc.EmailVerified {
		return
	}
	svc.Mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.DisplayName, Address: acc.Email}},
		Subject:      "Verify your email",
		TemplateName: "verify_email",
		TemplateData: mailData{
			Name:  acc.Name(),
			UID:   EncodeUID(acc),
			Token: svc.tokens.makeToken(acc, purposeVerifyEmail),
		},
	})
}

func (svc *service) sendPasswordResetMail(acc Account) {
	svc.Mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.DisplayName, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: mailData{
			Name:  acc.Name(),
			UID:   EncodeUID(acc),
			Token: svc.tokens.makeToken(acc, purposePasswordReset),
		},
	})
}
