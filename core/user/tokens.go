package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Token purposes. Each purpose signs with its own key.
const (
	purposePasswordReset = "password_reset"
	purposeVerifyEmail   = "verify_email"
)

var nowFunc = time.Now // mockable

// tokenGenerator makes and checks one-time account tokens.
// Password reset tokens die when the password or last login changes.
// Email verification tokens die when the email or its verification status changes.
type tokenGenerator struct {
	secret  string
	timeout time.Duration
}

// EncodeUID base64 encodes the given account ID
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acc.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

func (g tokenGenerator) makeToken(acc Account, purpose string) string {
	return g.makeTokenWithTimestamp(acc, purpose, numDaysSince2001(nowFunc()))
}

func (g tokenGenerator) verifyToken(acc Account, purpose, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(acc, purpose, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(nowFunc()) - ts) > int(g.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeTokenWithTimestamp(acc Account, purpose string, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, g.sign(purpose, hashValue(acc, purpose, ts)))
}

func (g tokenGenerator) sign(purpose string, val []byte) string {
	key := sha256.Sum256([]byte("tutortrack.core.user." + purpose + g.secret))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(acc Account, purpose string, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(acc.ID)
	switch purpose {
	case purposePasswordReset:
		val.Write(acc.PasswordHash)
		if !acc.LastLogin.IsZero() {
			val.WriteString(acc.LastLogin.UTC().Format(time.RFC3339Nano))
		}
	case purposeVerifyEmail:
		val.WriteString(acc.Email)
		val.WriteString(strconv.FormatBool(acc.EmailVerified))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
