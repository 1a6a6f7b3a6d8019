package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tutortrack/core"
)

// Role is the single portal a user has access to.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Identity providers.
const (
	ProviderPassword  = "password"
	ProviderGoogle    = "google"
	ProviderAnonymous = "anonymous"
)

var Roles = []RoleOption{
	{Name: "Student", Value: RoleStudent},
	{Name: "Teacher", Value: RoleTeacher},
}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

func (r Role) String() string { return string(r) }

type RoleOption struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// Account is the identity record. It never carries the role.
type Account struct {
	ID              string
	Email           string
	DisplayName     string
	PasswordHash    []byte
	Provider        string
	ProviderSubject string
	IsAnonymous     bool
	EmailVerified   bool
	IsActive        bool
	CreatedAt       time.Time // UTC
	UpdatedAt       time.Time // UTC
	LastLogin       time.Time // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	if len(a.PasswordHash) == 0 {
		return ErrInvalidCredential
	}
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

// Name is what we call the user in UIs and emails.
func (a Account) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Email != "" {
		return core.EmailLocalPart(a.Email)
	}
	return "Guest"
}

// RoleDocument is the per-user document that persists the role, keyed by user id.
type RoleDocument struct {
	UserID    string    `json:"user_id" bson:"_id"`
	Role      Role      `json:"role" bson:"role"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Session is a signed-in browser session. Deleting it signs the user out.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// User is the view of an account returned to clients.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name"`
	Role          Role      `json:"role,omitempty"`
	IsAnonymous   bool      `json:"is_anonymous"`
	EmailVerified bool      `json:"email_verified"`
	Provider      string    `json:"provider"`
	CreatedAt     time.Time `json:"created_at"`
	LastLogin     time.Time `json:"last_login"`
}

func NewUser(acc Account, role Role) User {
	return User{
		ID:            acc.ID,
		Email:         acc.Email,
		DisplayName:   acc.Name(),
		Role:          role,
		IsAnonymous:   acc.IsAnonymous,
		EmailVerified: acc.EmailVerified,
		Provider:      acc.Provider,
		CreatedAt:     acc.CreatedAt,
		LastLogin:     acc.LastLogin,
	}
}

func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }

// SignUpRequest creates a password account, or upgrades the guest account named by GuestID.
type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"omitempty,max=150"`
	Role        Role   `json:"role" validate:"omitempty,role"`
	GuestID     string `json:"-"`
}

func (r *SignUpRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.DisplayName = core.CleanString(r.DisplayName)
	return validate.Struct(r)
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *SignInRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

// Federated sign-in modes.
const (
	ModeSignIn = "signin"
	ModeSignUp = "signup"
)

type FederatedSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
	Mode    string `json:"mode" validate:"omitempty,oneof=signin signup"`
	Role    Role   `json:"role" validate:"omitempty,role"`
}

func (r *FederatedSignInRequest) Validate(validate *validator.Validate) error {
	r.IDToken = core.CleanString(r.IDToken)
	r.Mode = core.CleanString(r.Mode, true /* lower */)
	if r.Mode == "" {
		r.Mode = ModeSignIn
	}
	return validate.Struct(r)
}

type SetRoleRequest struct {
	Role Role `json:"role" validate:"required,role"`
}

func (r SetRoleRequest) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *PasswordResetRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type ResetPasswordRequest struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (r ResetPasswordRequest) Validate(validate *validator.Validate) error { return validate.Struct(r) }

type VerifyEmailRequest struct {
	Token string `json:"token,omitempty" validate:"required"`
	UID   string `json:"uid,omitempty" validate:"required"`
}

func (r VerifyEmailRequest) Validate(validate *validator.Validate) error { return validate.Struct(r) }
