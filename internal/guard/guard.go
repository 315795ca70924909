// Package guard gates the admin dashboard behind a passkey the browser holds
// in encrypted form.
//
// Evaluate and Middleware drive the dashboard gate: a session state machine
// that only decides what the viewer is shown. Routes that change records do
// not look at that state; they call Authorize, which re-verifies the token on
// every request.
package guard

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var ErrUnauthorized = errors.New("admin authorization required")

type Decision string

const (
	Checking Decision = "checking"
	Allowed  Decision = "allowed"
	Denied   Decision = "denied"
)

const (
	CookieName      = "accessKey"
	DefaultRedirect = "/?admin=true"
)

// Session is the guard state for one mounted view. It starts in Checking and
// moves once to Allowed or Denied.
type Session struct {
	Token    string
	Decision Decision
	Redirect string
}

func (s *Session) settle(d Decision, redirect string) {
	if s.Decision != Checking {
		return
	}
	s.Decision = d
	s.Redirect = redirect
}

type Guard struct {
	codec    Codec
	passkey  string
	redirect string
	log      *slog.Logger
}

// New builds a guard comparing decoded tokens against passkey. An empty
// passkey denies everyone.
func New(codec Codec, passkey string, log *slog.Logger) *Guard {
	return &Guard{
		codec:    codec,
		passkey:  passkey,
		redirect: DefaultRedirect,
		log:      log,
	}
}

// Evaluate decides a fresh session for the token the browser presented.
// A missing token is denied without touching the codec.
func (g *Guard) Evaluate(token string, present bool) Session {
	s := Session{Token: token, Decision: Checking}

	if !present || token == "" {
		s.settle(Denied, g.redirect)
		return s
	}

	candidate, err := g.codec.Decode(token)
	if err != nil {
		g.log.Debug("admin token rejected", "error", err)
		s.settle(Denied, g.redirect)
		return s
	}

	if g.matches(candidate) {
		s.settle(Allowed, "")
	} else {
		s.settle(Denied, g.redirect)
	}
	return s
}

// Issue checks a typed passkey and returns the token the browser should hold.
func (g *Guard) Issue(passkey string) (string, bool, error) {
	if !g.matches(passkey) {
		return "", false, nil
	}
	token, err := g.codec.Encode(passkey)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Authorize verifies the admin token carried by r, either as the accessKey
// cookie or as an Authorization bearer token.
func (g *Guard) Authorize(r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(CookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return ErrUnauthorized
	}

	candidate, err := g.codec.Decode(token)
	if err != nil || !g.matches(candidate) {
		return ErrUnauthorized
	}
	return nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func (g *Guard) matches(candidate string) bool {
	if g.passkey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(g.passkey)) == 1
}
