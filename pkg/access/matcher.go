package access

import "bytes"

// Authorizer decides whether an already-unescaped, unquoted authorization
// is held. AuthorizationSet.Authorizer and NewEvaluatorFromAuthorizer both
// produce values of this type.
type Authorizer func(authorization []byte) bool

// AuthorizationSet is a collection of authorizations held by one principal,
// with set semantics: duplicates passed to NewAuthorizationSet collapse to
// a single member. Membership is tested against the unescaped, unquoted
// form of a token, per the authorization-matcher component.
type AuthorizationSet struct {
	members map[string]struct{}
}

// NewAuthorizationSet builds a set from a list of already-unescaped
// authorization strings.
func NewAuthorizationSet(auths ...string) AuthorizationSet {
	m := make(map[string]struct{}, len(auths))
	for _, a := range auths {
		m[a] = struct{}{}
	}
	return AuthorizationSet{members: m}
}

// Authorizer adapts the set to the Authorizer predicate shape.
func (s AuthorizationSet) Authorizer() Authorizer {
	return func(authorization []byte) bool {
		return s.hasBytes(authorization)
	}
}

func (s AuthorizationSet) hasBytes(b []byte) bool {
	// Reading a map[string]T with a string conversion of a byte slice is a
	// compiler-recognized pattern that does not allocate; it is how this
	// package avoids allocation on the bare-token match path.
	_, ok := s.members[string(b)]
	return ok
}

// matches decides membership of a lexical authorization token against the
// set, honoring the quoted/unquoted distinction and avoiding allocation
// whenever the token carries no escape sequences.
func (s AuthorizationSet) matches(tok authToken) bool {
	return evaluateToken(tok, s.hasBytes)
}

// evaluateToken invokes an Authorizer against a lexical token, unescaping
// only when the token is quoted and actually contains a backslash.
func evaluateToken(tok authToken, a Authorizer) bool {
	raw := tok.raw()
	if !tok.quoted {
		return a(raw)
	}
	if !bytes.ContainsRune(raw, '\\') {
		return a(raw)
	}
	return a(unescape(raw))
}

// unescape resolves \" -> " and \\ -> \ in a quoted-token interior that has
// already been validated by the tokenizer (so no other escape can occur).
// It allocates only when the input actually contains a backslash.
func unescape(raw []byte) []byte {
	if !bytes.ContainsRune(raw, '\\') {
		return raw
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' {
			i++
			out = append(out, raw[i])
			continue
		}
		out = append(out, raw[i])
	}
	return out
}

// unescapeValidated resolves escapes in a byte string that has NOT already
// passed through the tokenizer's grammar (the public Unquote entry point),
// rejecting any escape other than \" and \\.
func unescapeValidated(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' {
			if i+1 >= len(raw) {
				return nil, newErr(ErrUnterminatedQuote, i, "dangling escape character")
			}
			next := raw[i+1]
			if next != '"' && next != '\\' {
				return nil, newErr(ErrBadEscape, i, "invalid escape sequence \\%c", next)
			}
			out = append(out, next)
			i++
			continue
		}
		out = append(out, raw[i])
	}
	return out, nil
}

// Quote renders term as an access-expression authorization literal. If
// every byte of term already satisfies the bare-authorization character
// class, term is returned unchanged (idempotent quoting); otherwise it is
// wrapped in double quotes with '"' and '\\' backslash-escaped.
func Quote(term []byte) ([]byte, error) {
	if len(term) == 0 {
		return nil, ErrEmptyTerm
	}

	bare := true
	for _, b := range term {
		if !isValidAuthChar(b) {
			bare = false
			break
		}
	}
	if bare {
		out := make([]byte, len(term))
		copy(out, term)
		return out, nil
	}

	out := make([]byte, 0, len(term)+2)
	out = append(out, '"')
	for _, b := range term {
		if b == '"' || b == '\\' {
			out = append(out, '\\')
		}
		out = append(out, b)
	}
	out = append(out, '"')
	return out, nil
}

// Unquote reverses Quote. A term beginning and ending with '"' has its
// delimiters stripped and its interior unescaped; any other non-empty term
// is returned as-is. The empty term and the literal `""` are both rejected.
func Unquote(term []byte) ([]byte, error) {
	if len(term) == 0 {
		return nil, ErrEmptyTerm
	}
	if bytes.Equal(term, []byte(`""`)) {
		return nil, ErrEmptyTerm
	}

	if len(term) >= 2 && term[0] == '"' && term[len(term)-1] == '"' {
		interior := term[1 : len(term)-1]
		return unescapeValidated(interior)
	}

	out := make([]byte, len(term))
	copy(out, term)
	return out, nil
}
