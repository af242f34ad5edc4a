package domain

// CredentialProvider is the boundary to the external credential store. The
// core reads the current token opportunistically per request; it never
// blocks for one and never refreshes it. Rotation belongs to the
// collaborator behind this interface.
type CredentialProvider interface {
	// Token returns the current bearer token. The second return is false
	// when no token is held, in which case requests go out unauthenticated.
	Token() (string, bool)
}
