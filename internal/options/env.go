// Package options builds option layers from the process environment.
package options

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

type osVars struct {
	AuthURL           string `env:"OS_AUTH_URL"`
	Region            string `env:"OS_REGION_NAME"`
	Interface         string `env:"OS_INTERFACE"`
	EndpointType      string `env:"OS_ENDPOINT_TYPE"`
	IdentityVersion   string `env:"OS_IDENTITY_API_VERSION"`
	UserID            string `env:"OS_USER_ID"`
	Username          string `env:"OS_USERNAME"`
	Password          string `env:"OS_PASSWORD"`
	DomainID          string `env:"OS_USER_DOMAIN_ID"`
	DomainName        string `env:"OS_USER_DOMAIN_NAME"`
	ProjectID         string `env:"OS_PROJECT_ID"`
	ProjectName       string `env:"OS_PROJECT_NAME"`
	ProjectDomainID   string `env:"OS_PROJECT_DOMAIN_ID"`
	ProjectDomainName string `env:"OS_PROJECT_DOMAIN_NAME"`
	TenantID          string `env:"OS_TENANT_ID"`
	TenantName        string `env:"OS_TENANT_NAME"`
	TokenID           string `env:"OS_TOKEN"`
}

// FromEnv reads the usual OS_* variables into an options layer. Unset
// variables leave their fields zero so the layer can be merged under or
// over others.
func FromEnv() (cloud.Options, error) {
	return parse(env.Options{})
}

// FromEnvironment is FromEnv over an explicit variable set.
func FromEnvironment(environment map[string]string) (cloud.Options, error) {
	return parse(env.Options{Environment: environment})
}

func parse(envOpts env.Options) (cloud.Options, error) {
	var vars osVars

	err := env.ParseWithOptions(&vars, envOpts)
	if err != nil {
		return cloud.Options{}, fmt.Errorf("error getting env configs: %w", err)
	}

	version, err := identityVersion(vars.IdentityVersion)
	if err != nil {
		return cloud.Options{}, err
	}

	opts := cloud.Options{
		AuthURL:           vars.AuthURL,
		Region:            vars.Region,
		IdentityVersion:   version,
		UserID:            vars.UserID,
		Username:          vars.Username,
		Password:          vars.Password,
		DomainID:          vars.DomainID,
		DomainName:        vars.DomainName,
		ProjectID:         vars.ProjectID,
		ProjectName:       vars.ProjectName,
		ProjectDomainID:   vars.ProjectDomainID,
		ProjectDomainName: vars.ProjectDomainName,
		TenantID:          vars.TenantID,
		TenantName:        vars.TenantName,
		TokenID:           vars.TokenID,
	}

	endpointType := vars.Interface
	if endpointType == "" {
		endpointType = vars.EndpointType
	}

	if endpointType != "" {
		opts.Interface = strings.TrimSuffix(strings.ToLower(endpointType), "url")
		opts.URLType = opts.Interface + "URL"
	}

	return opts, nil
}

// identityVersion maps "3", "v3", "2.0" and the like to cloud.IdentityV3
// or cloud.IdentityV2.
func identityVersion(raw string) (string, error) {
	version := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "v")

	switch {
	case version == "":
		return "", nil
	case version == "3" || strings.HasPrefix(version, "3."):
		return cloud.IdentityV3, nil
	case version == "2" || strings.HasPrefix(version, "2."):
		return cloud.IdentityV2, nil
	default:
		return "", &cloud.ConfigError{Option: "IdentityVersion", Reason: fmt.Sprintf("%q is not a supported identity API version", raw)}
	}
}
