package constants

import "errors"

// CLI errors.
var (
	ErrNoAuthURL          = errors.New("no auth URL configured, set --auth-url, OS_AUTH_URL or auth_url in the config file")
	ErrUnknownOutput      = errors.New("unknown output format")
	ErrPasswordRequired   = errors.New("password required but stdin is not a terminal")
	ErrInvalidAliasFormat = errors.New("aliases must be given as canonical=alias")
	ErrInvalidServiceType = errors.New("service has an unexpected type")
)
