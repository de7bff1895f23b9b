package model

// AssertionVerifier turns a signed identity assertion into its claims.
type AssertionVerifier interface {
	Verify(token string) (IdentityAssertion, error)
}
