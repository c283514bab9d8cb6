package auth

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
)

const (
	testSecret    = "JBSWY3DPEHPK3PXP"
	testJWTSecret = "0123456789abcdef0123456789abcdef"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// --- Mocks ---

type memGuard struct {
	seen map[string]time.Time
	err  error
}

func (g *memGuard) Claim(_ context.Context, id string, expires time.Time) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if _, ok := g.seen[id]; ok {
		return false, nil
	}
	g.seen[id] = expires
	return true, nil
}

type staticVerifier struct {
	grant Grant
	err   error
}

func (v staticVerifier) Verify(string, time.Time) (Grant, error) { return v.grant, v.err }

func newTOTP(t *testing.T) *TOTPVerifier {
	t.Helper()
	v, err := NewTOTPVerifier([]TOTPKey{
		{Name: "recruiting", Secret: testSecret, Scopes: []string{scope.Search}},
		{Name: "audit", Secret: "KRSXG5CTMVRXEZLU", Scopes: []string{"audit"}},
	}, 0, DefaultSkew)
	require.NoError(t, err)
	return v
}

// --- TOTP ---

func TestTOTP_Verify(t *testing.T) {
	v := newTOTP(t)
	code, err := v.Code("recruiting", now)
	require.NoError(t, err)

	g, err := v.Verify("recruiting:"+code, now)
	require.NoError(t, err)
	assert.Equal(t, "recruiting", g.Subject)
	assert.True(t, g.Scopes.Has(scope.Search))
	assert.Equal(t, "totp:recruiting:"+code, g.ID)
	assert.Equal(t, now.Add(90*time.Second), g.Expires)

	g, err = v.Verify(code, now.Add(DefaultPeriod))
	require.NoError(t, err, "bare code within skew")
	assert.Equal(t, "recruiting", g.Subject)
}

func TestTOTP_Rejects(t *testing.T) {
	v := newTOTP(t)
	code, err := v.Code("recruiting", now)
	require.NoError(t, err)

	tests := []struct {
		name string
		cred string
		at   time.Time
	}{
		{"outside window", "recruiting:" + code, now.Add(3 * DefaultPeriod)},
		{"other key", "audit:" + code, now},
		{"unknown key", "nobody:" + code, now},
		{"malformed", "recruiting:12ab", now},
		{"empty", "", now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.cred, tt.at)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}
}

func TestNewTOTPVerifier_Validation(t *testing.T) {
	_, err := NewTOTPVerifier(nil, 0, 1)
	assert.Error(t, err)
	_, err = NewTOTPVerifier([]TOTPKey{{Name: "a", Secret: "not base32!"}}, 0, 1)
	assert.Error(t, err)
	_, err = NewTOTPVerifier([]TOTPKey{{Name: "a:b", Secret: testSecret}}, 0, 1)
	assert.Error(t, err)
	_, err = NewTOTPVerifier([]TOTPKey{{Name: "a", Secret: testSecret}, {Name: "a", Secret: testSecret}}, 0, 1)
	assert.Error(t, err)
}

// --- JWT ---

func newJWT(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testJWTSecret, "talentctl", 5*time.Second)
	require.NoError(t, err)
	return v
}

func TestJWT_IssueAndVerify(t *testing.T) {
	v := newJWT(t)
	token, err := v.Issue("svc-recruiting", scope.NewSet(scope.Search, "audit"), time.Minute, now)
	require.NoError(t, err)

	g, err := v.Verify(token, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "svc-recruiting", g.Subject)
	assert.Equal(t, []string{"audit", scope.Search}, g.Scopes.Names())
	assert.Contains(t, g.ID, "jwt:")
	assert.True(t, now.Add(time.Minute+5*time.Second).Equal(g.Expires), "expires %v", g.Expires)

	other, err := v.Issue("svc-recruiting", scope.NewSet(scope.Search), time.Minute, now)
	require.NoError(t, err)
	g2, err := v.Verify(other, now)
	require.NoError(t, err)
	assert.NotEqual(t, g.ID, g2.ID)
}

func TestJWT_Rejects(t *testing.T) {
	v := newJWT(t)
	valid, err := v.Issue("s", scope.NewSet(scope.Search), time.Minute, now)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, c Claims) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := jwt.RegisteredClaims{
		Issuer:    "talentctl",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		ID:        "j1",
	}
	noJTI := base
	noJTI.ID = ""
	noExp := base
	noExp.ExpiresAt = nil
	otherIss := base
	otherIss.Issuer = "someone"

	tests := []struct {
		name string
		cred string
		at   time.Time
	}{
		{"expired", valid, now.Add(2 * time.Minute)},
		{"not yet valid", valid, now.Add(-time.Minute)},
		{"garbage", "not.a.jwt", now},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("ffffffffffffffffffffffffffffffff"), Claims{RegisteredClaims: base}), now},
		{"wrong alg", sign(jwt.SigningMethodHS512, []byte(testJWTSecret), Claims{RegisteredClaims: base}), now},
		{"no jti", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), Claims{RegisteredClaims: noJTI}), now},
		{"no exp", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), Claims{RegisteredClaims: noExp}), now},
		{"issuer", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), Claims{RegisteredClaims: otherIss}), now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.cred, tt.at)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
		})
	}
}

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	_, err := NewJWTVerifier("short", "", 0)
	assert.Error(t, err)
}

// --- Gate ---

func TestGate_Authorize(t *testing.T) {
	v := newTOTP(t)
	guard := &memGuard{seen: map[string]time.Time{}}
	gate := NewGate(v, guard, GateConfig{RequiredScope: scope.Search})
	gate.now = func() time.Time { return now }

	code, err := v.Code("recruiting", now)
	require.NoError(t, err)

	ctx, err := gate.Authorize(context.Background(), "recruiting:"+code)
	require.NoError(t, err)
	scopes, ok := scope.FromContext(ctx)
	require.True(t, ok)
	assert.True(t, scopes.Has(scope.Search))

	_, err = gate.Authorize(context.Background(), "recruiting:"+code)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized), "replayed code")
}

func TestGate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		verifier Verifier
		guard    ReplayGuard
		cred     string
		kind     string
		is       error
	}{
		{"missing", staticVerifier{}, nil, "", domain.KindAuth, domain.ErrUnauthorized},
		{"invalid", staticVerifier{err: domain.NewUnauthorized("bad")}, nil, "x", domain.KindAuth, domain.ErrUnauthorized},
		{"scope", staticVerifier{grant: Grant{Scopes: scope.NewSet("audit")}}, nil, "x", domain.KindAuth, domain.ErrForbidden},
		{
			"replay store down",
			staticVerifier{grant: Grant{ID: "j", Scopes: scope.NewSet(scope.Search)}},
			&memGuard{err: errors.New("connection refused")}, "x", domain.KindInternal, nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.verifier, tt.guard, GateConfig{RequiredScope: scope.Search})
			_, err := gate.Authorize(context.Background(), tt.cred)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.Kind(err))
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

func TestGate_Anonymous(t *testing.T) {
	gate := NewGate(NewNoneVerifier([]string{scope.Search}), nil, GateConfig{
		RequiredScope: scope.Search,
		Anonymous:     true,
	})
	ctx, err := gate.Authorize(context.Background(), "")
	require.NoError(t, err)
	scopes, ok := scope.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, []string{scope.Search}, scopes.Names())
}
