package testutil

import "context"

// StaticToken is a token manager that always hands out the same token.
type StaticToken string

// GetToken implements the http client's TokenManager.
func (s StaticToken) GetToken(context.Context) (string, error) {
	return string(s), nil
}

// RefreshToken is a no-op.
func (s StaticToken) RefreshToken(context.Context, string) error {
	return nil
}
