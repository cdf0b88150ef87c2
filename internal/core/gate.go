package core

import "crypto/subtle"

// Gate checks the shared access password. The expected value is fixed at
// construction.
type Gate struct {
	expected []byte
}

// NewGate returns a Gate accepting password.
func NewGate(password string) *Gate {
	return &Gate{expected: []byte(password)}
}

// AccessDecision is the result of one Gate evaluation.
type AccessDecision struct {
	Allowed   bool
	Attempted bool
}

// Notice returns the text to show the user, or "" when nothing should be
// shown.
func (d AccessDecision) Notice() string {
	if d.Attempted && !d.Allowed {
		return "Incorrect password"
	}
	return ""
}

// Err returns ErrAccessRequired, ErrAccessDenied or nil.
func (d AccessDecision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Attempted:
		return ErrAccessDenied
	default:
		return ErrAccessRequired
	}
}

// Evaluate compares credential with the expected password in constant time.
// An empty credential is treated as no attempt.
func (g *Gate) Evaluate(credential string) AccessDecision {
	if credential == "" {
		return AccessDecision{}
	}
	if len(g.expected) == 0 {
		return AccessDecision{Attempted: true}
	}
	ok := subtle.ConstantTimeCompare([]byte(credential), g.expected) == 1
	return AccessDecision{Allowed: ok, Attempted: true}
}
