package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/pkg/metrics"
)

const defaultAuthTimeout = 5 * time.Second

// IdentityClaims is the JWT payload that proves an identity. The subject id
// travels in the registered "sub" claim.
type IdentityClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ConnectionAuthenticator validates bearer credentials. The role claim is
// treated as advisory: when a RoleVerifier is configured the persisted role
// replaces it.
type ConnectionAuthenticator struct {
	secret   []byte
	verifier ports.RoleVerifier
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

var _ ports.Authenticator = (*ConnectionAuthenticator)(nil)

// NewConnectionAuthenticator returns an authenticator for HS256 tokens signed
// with jwtSecret. verifier may be nil, in which case the token role is
// trusted as issued.
func NewConnectionAuthenticator(jwtSecret string, verifier ports.RoleVerifier, timeout time.Duration, log zerolog.Logger) *ConnectionAuthenticator {
	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}
	return &ConnectionAuthenticator{
		secret:   []byte(jwtSecret),
		verifier: verifier,
		timeout:  timeout,
		log:      log,
		now:      time.Now,
	}
}

// Authenticate validates signature, expiry and identity fields of token.
// Every failure wraps domain.ErrAuthentication.
func (a *ConnectionAuthenticator) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return a.reject("missing_token", errors.New("token absent"))
	}

	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return a.reject("invalid_token", err)
	}

	id, err := identityFromClaims(claims)
	if err != nil {
		return a.reject("invalid_token", err)
	}

	if a.verifier == nil {
		return id, nil
	}

	verifyCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	role, err := a.verifier.CurrentRole(verifyCtx, id.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return a.reject("unknown_subject", err)
		}
		return a.reject("verify_failed", err)
	}
	if role != id.Role {
		a.log.Warn().
			Int64("subject_id", id.SubjectID).
			Str("claimed_role", string(id.Role)).
			Str("current_role", string(role)).
			Msg("token role differs from persisted role, using persisted role")
		id.Role = role
	}
	return id, nil
}

func identityFromClaims(c *IdentityClaims) (domain.Identity, error) {
	subjectID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || subjectID <= 0 {
		return domain.Identity{}, errors.New("subject id missing or not a positive integer")
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return domain.Identity{}, errors.New("display name missing")
	}
	role := domain.Role(c.Role)
	if !role.Valid() {
		return domain.Identity{}, fmt.Errorf("unknown role %q", c.Role)
	}
	return domain.Identity{SubjectID: subjectID, DisplayName: name, Role: role}, nil
}

func (a *ConnectionAuthenticator) reject(reason string, cause error) (domain.Identity, error) {
	metrics.AuthRejectionsTotal.WithLabelValues(reason).Inc()
	a.log.Debug().Err(cause).Str("reason", reason).Msg("credential rejected")
	return domain.Identity{}, fmt.Errorf("%w: %s", domain.ErrAuthentication, strings.ReplaceAll(reason, "_", " "))
}
