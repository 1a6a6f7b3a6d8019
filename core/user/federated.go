package user

import (
	"context"

	"google.golang.org/api/idtoken"
)

type (
	// FederatedIdentity is what a federated provider tells us about a signed-in user.
	FederatedIdentity struct {
		Provider      string
		Subject       string
		Email         string
		EmailVerified bool
		Name          string
	}

	// FederatedVerifier checks a provider-issued ID token.
	FederatedVerifier interface {
		Verify(ctx context.Context, idToken string) (FederatedIdentity, error)
	}

	// GoogleVerifier validates Google ID tokens locally, against Google's public signing keys.
	GoogleVerifier struct {
		ClientID string
	}
)

var (
	_ FederatedVerifier = (*GoogleVerifier)(nil)

	googleIssuers = map[string]bool{
		"accounts.google.com":         true,
		"https://accounts.google.com": true,
	}

	// mockable for tests
	validateGoogleIDToken = idtoken.Validate
)

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (FederatedIdentity, error) {
	if v.ClientID == "" {
		return FederatedIdentity{}, ErrInvalidIDToken
	}
	payload, err := validateGoogleIDToken(ctx, idToken, v.ClientID)
	if err != nil {
		return FederatedIdentity{}, ErrInvalidIDToken
	}
	if !googleIssuers[payload.Issuer] || payload.Subject == "" {
		return FederatedIdentity{}, ErrInvalidIDToken
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	return FederatedIdentity{
		Provider:      ProviderGoogle,
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: claimBool(payload.Claims["email_verified"]),
		Name:          name,
	}, nil
}

// claimBool reads a boolean claim, which some issuers encode as a string.
func claimBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}
