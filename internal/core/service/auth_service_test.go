package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

const testSecret = "secret"

type stubRoleVerifier struct {
	roles map[int64]domain.Role
	err   error
	calls int
}

func (v *stubRoleVerifier) CurrentRole(_ context.Context, subjectID int64) (domain.Role, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	role, ok := v.roles[subjectID]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	return role, nil
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(sub, name, role string) IdentityClaims {
	return IdentityClaims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestConnectionAuthenticator_Authenticate_Success(t *testing.T) {
	auth := NewConnectionAuthenticator(testSecret, nil, time.Second, zerolog.Nop())
	token := signToken(t, testSecret, validClaims("42", "Alice", "customer"))

	id, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	want := domain.Identity{SubjectID: 42, DisplayName: "Alice", Role: domain.RoleCustomer}
	if id != want {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestConnectionAuthenticator_Authenticate_Rejections(t *testing.T) {
	expired := validClaims("42", "Alice", "customer")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("42", "Alice", "customer")
	noExpiry.ExpiresAt = nil

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("42", "Alice", "customer")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"absent", ""},
		{"blank", "   "},
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, "other", validClaims("42", "Alice", "customer"))},
		{"unsigned", none},
		{"expired", signToken(t, testSecret, expired)},
		{"no expiry", signToken(t, testSecret, noExpiry)},
		{"missing subject", signToken(t, testSecret, validClaims("", "Alice", "customer"))},
		{"non numeric subject", signToken(t, testSecret, validClaims("alice", "Alice", "customer"))},
		{"zero subject", signToken(t, testSecret, validClaims("0", "Alice", "customer"))},
		{"missing name", signToken(t, testSecret, validClaims("42", " ", "customer"))},
		{"missing role", signToken(t, testSecret, validClaims("42", "Alice", ""))},
		{"unknown role", signToken(t, testSecret, validClaims("42", "Alice", "root"))},
	}

	auth := NewConnectionAuthenticator(testSecret, nil, time.Second, zerolog.Nop())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), tc.token)
			if !errors.Is(err, domain.ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got %v", err)
			}
			if domain.CodeOf(err) != domain.CodeAuthentication {
				t.Fatalf("unexpected code %s", domain.CodeOf(err))
			}
		})
	}
}

func TestConnectionAuthenticator_PersistedRoleWins(t *testing.T) {
	verifier := &stubRoleVerifier{roles: map[int64]domain.Role{7: domain.RoleCustomer}}
	auth := NewConnectionAuthenticator(testSecret, verifier, time.Second, zerolog.Nop())

	// token still claims staff after a downgrade
	token := signToken(t, testSecret, validClaims("7", "Bob", "staff"))
	id, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if id.Role != domain.RoleCustomer {
		t.Fatalf("expected downgraded role customer, got %s", id.Role)
	}
	if verifier.calls != 1 {
		t.Fatalf("expected 1 verifier call, got %d", verifier.calls)
	}
}

func TestConnectionAuthenticator_UnknownSubjectRejected(t *testing.T) {
	verifier := &stubRoleVerifier{roles: map[int64]domain.Role{}}
	auth := NewConnectionAuthenticator(testSecret, verifier, time.Second, zerolog.Nop())

	_, err := auth.Authenticate(context.Background(), signToken(t, testSecret, validClaims("9", "Ghost", "customer")))
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown subject") {
		t.Fatalf("expected reason in message, got %q", err.Error())
	}
}

func TestConnectionAuthenticator_VerifierFailureFailsClosed(t *testing.T) {
	verifier := &stubRoleVerifier{err: errors.New("db down")}
	auth := NewConnectionAuthenticator(testSecret, verifier, time.Second, zerolog.Nop())

	_, err := auth.Authenticate(context.Background(), signToken(t, testSecret, validClaims("7", "Bob", "admin")))
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if strings.Contains(err.Error(), "db down") {
		t.Fatalf("internal cause leaked: %q", err.Error())
	}
}

func TestConnectionAuthenticator_UsesInjectedClock(t *testing.T) {
	auth := NewConnectionAuthenticator(testSecret, nil, time.Second, zerolog.Nop())
	claims := validClaims("42", "Alice", "customer")
	claims.ExpiresAt = jwt.NewNumericDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	token := signToken(t, testSecret, claims)

	auth.now = func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := auth.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected expiry rejection, got %v", err)
	}
}
