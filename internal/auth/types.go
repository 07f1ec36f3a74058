package auth

// ProtectedResourceMetadata is an RFC 9728 protected-resource metadata
// document. Only the fields this client consumes are mapped.
type ProtectedResourceMetadata struct {
	Resource             string   `json:"resource"`
	AuthorizationServers []string `json:"authorization_servers"`
	ScopesSupported      []string `json:"scopes_supported,omitempty"`
}

// ServerMetadata is an RFC 8414 authorization-server metadata document.
// It is fetched per flow attempt and never cached.
type ServerMetadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// AuthorizationResult is the code and state captured from the redirect,
// delivered to the orchestrator exactly once per flow.
type AuthorizationResult struct {
	Code  string
	State string
}

// TokenResponse is what the token endpoint returned. Beyond AccessToken the
// fields are carried through opaquely for the caller.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
}
