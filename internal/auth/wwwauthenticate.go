package auth

import (
	"strings"
)

// Challenge is one authentication challenge from a WWW-Authenticate header
// (RFC 6750). Parameters holds every auth-param as sent, keys lowercased.
type Challenge struct {
	Scheme string
	Params map[string]string
}

// ResourceMetadata returns the RFC 9728 resource_metadata parameter, if any.
func (c Challenge) ResourceMetadata() string { return c.Params["resource_metadata"] }

// Scope returns the scope parameter, if any.
func (c Challenge) Scope() string { return c.Params["scope"] }

// ResourceMetadataURL extracts the resource_metadata URL from the Bearer
// challenge of a WWW-Authenticate header. The absence of a Bearer challenge
// or of the parameter is a ProtocolError: without it the client has no way
// to locate an authorization server.
func ResourceMetadataURL(header string) (string, error) {
	for _, ch := range ParseWWWAuthenticate(header) {
		if !strings.EqualFold(ch.Scheme, "Bearer") {
			continue
		}
		if u := ch.ResourceMetadata(); u != "" {
			return u, nil
		}
		return "", &ProtocolError{Reason: "Bearer challenge has no resource_metadata parameter"}
	}
	return "", &ProtocolError{Reason: "no Bearer challenge in WWW-Authenticate header"}
}

// ParseWWWAuthenticate splits a WWW-Authenticate value into its challenges.
// The grammar in the wild is loose, so the parser is tolerant: values may be
// quoted or bare, commas between parameters are optional, and a token that
// is not followed by '=' starts the next challenge.
func ParseWWWAuthenticate(header string) []Challenge {
	s := strings.TrimSpace(header)
	var challenges []Challenge
	for s != "" {
		scheme, rest := nextToken(s)
		if scheme == "" {
			break
		}
		ch := Challenge{Scheme: scheme, Params: map[string]string{}}
		s = parseAuthParams(rest, ch.Params)
		challenges = append(challenges, ch)
	}
	return challenges
}

// parseAuthParams consumes key=value pairs into params and returns the
// remainder of the input, which begins with the next scheme if one follows.
func parseAuthParams(s string, params map[string]string) string {
	for {
		s = strings.TrimSpace(s)
		if s == "" {
			return ""
		}
		key, rest := nextToken(s)
		if key == "" {
			return s
		}
		rest = strings.TrimSpace(rest)
		if rest == "" || rest[0] != '=' {
			// Not key=value: the token is the next challenge's scheme.
			return s
		}
		rest = strings.TrimSpace(rest[1:])

		var value string
		if strings.HasPrefix(rest, `"`) {
			value, rest = unquote(rest)
		} else {
			value, rest = nextToken(rest)
		}
		params[strings.ToLower(key)] = value

		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, ",") {
			rest = rest[1:]
		}
		s = rest
	}
}

// nextToken returns the leading run of token characters and the remainder.
func nextToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t,=")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// unquote reads a double-quoted string, honoring backslash escapes. An
// unterminated quote consumes the rest of the input.
func unquote(s string) (string, string) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			b.WriteByte(s[i+1])
			i++
		case s[i] == '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), ""
}
