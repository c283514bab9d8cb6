package auth

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
)

// TOTP defaults (RFC 6238).
const (
	DefaultPeriod = 30 * time.Second
	DefaultSkew   = 1
)

// TOTPKey is one shared secret and the scopes its codes grant.
type TOTPKey struct {
	Name   string
	Secret string
	Scopes []string
}

type totpKey struct {
	name   string
	secret string
	scopes scope.Set
}

// TOTPVerifier accepts time-based one-time codes as "<key>:<code>" or a bare code
// checked against every key.
type TOTPVerifier struct {
	keys   []totpKey
	byName map[string]int
	opts   totp.ValidateOpts
}

// NewTOTPVerifier validates keys. skew is the number of periods accepted on each side.
func NewTOTPVerifier(keys []TOTPKey, period time.Duration, skew uint) (*TOTPVerifier, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("at least one totp key is required")
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	v := &TOTPVerifier{
		byName: make(map[string]int, len(keys)),
		opts: totp.ValidateOpts{
			Period:    uint(period / time.Second),
			Skew:      skew,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
	}
	for _, k := range keys {
		if k.Name == "" || strings.Contains(k.Name, ":") {
			return nil, fmt.Errorf("invalid totp key name %q", k.Name)
		}
		if _, dup := v.byName[k.Name]; dup {
			return nil, fmt.Errorf("duplicate totp key %q", k.Name)
		}
		secret := strings.ToUpper(strings.TrimSpace(k.Secret))
		if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "=")); err != nil {
			return nil, fmt.Errorf("totp key %q: secret is not base32", k.Name)
		}
		v.byName[k.Name] = len(v.keys)
		v.keys = append(v.keys, totpKey{name: k.Name, secret: secret, scopes: scope.NewSet(k.Scopes...)})
	}
	return v, nil
}

// Verify accepts a code valid at now within the skew window.
func (v *TOTPVerifier) Verify(credential string, now time.Time) (Grant, error) {
	name, code, named := strings.Cut(credential, ":")
	if !named {
		code, name = name, ""
	}
	if len(code) != v.opts.Digits.Length() {
		return Grant{}, domain.NewUnauthorized("malformed one-time code")
	}

	candidates := v.keys
	if named {
		i, ok := v.byName[name]
		if !ok {
			return Grant{}, domain.NewUnauthorized("unknown key")
		}
		candidates = v.keys[i : i+1]
	}

	for _, k := range candidates {
		ok, err := totp.ValidateCustom(code, k.secret, now.UTC(), v.opts)
		if err != nil || !ok {
			continue
		}
		window := time.Duration(v.opts.Period) * time.Second * time.Duration(2*v.opts.Skew+1)
		return Grant{
			Subject: k.name,
			Scopes:  k.scopes,
			ID:      "totp:" + k.name + ":" + code,
			Expires: now.Add(window),
		}, nil
	}
	return Grant{}, domain.NewUnauthorized("invalid or expired one-time code")
}

// Code generates the current code for a key. Used by operator tooling.
func (v *TOTPVerifier) Code(name string, now time.Time) (string, error) {
	i, ok := v.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown totp key %q", name)
	}
	return totp.GenerateCodeCustom(v.keys[i].secret, now.UTC(), v.opts)
}
