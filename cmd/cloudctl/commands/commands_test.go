package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func subcommandNames(cmd *cobra.Command) []string {
	names := make([]string, 0, len(cmd.Commands()))
	for _, subcmd := range cmd.Commands() {
		names = append(names, subcmd.Name())
	}

	return names
}

func TestNewServersCommand(t *testing.T) {
	t.Parallel()

	cmd := NewServersCommand()
	assert.Equal(t, "servers", cmd.Use)
	assert.Equal(t, []string{"server"}, cmd.Aliases)
	assert.Equal(t, "Manage servers", cmd.Short)
	assert.Equal(t, []string{"list"}, subcommandNames(cmd))

	list := newServersListCommand()
	assert.NotNil(t, list.RunE)

	for _, flagName := range []string{"name", "status", "limit"} {
		assert.NotNil(t, list.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestNewImagesCommand(t *testing.T) {
	t.Parallel()

	cmd := NewImagesCommand()
	assert.Equal(t, "images", cmd.Use)
	assert.Equal(t, []string{"image"}, cmd.Aliases)
	assert.Equal(t, []string{"list"}, subcommandNames(cmd))

	list := newImagesListCommand()
	for _, flagName := range []string{"name", "visibility", "tag", "limit"} {
		assert.NotNil(t, list.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestNewNetworksCommand(t *testing.T) {
	t.Parallel()

	cmd := NewNetworksCommand()
	assert.Equal(t, "networks", cmd.Use)
	assert.Equal(t, []string{"network", "net"}, cmd.Aliases)
	assert.Equal(t, []string{"list"}, subcommandNames(cmd))

	list := newNetworksListCommand()
	for _, flagName := range []string{"name", "status", "shared"} {
		assert.NotNil(t, list.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestNewSchemaCommand(t *testing.T) {
	t.Parallel()

	cmd := NewSchemaCommand()
	assert.Equal(t, "schema", cmd.Use)

	names := subcommandNames(cmd)
	assert.Len(t, names, 2)
	assert.Contains(t, names, "normalize")
	assert.Contains(t, names, "validate")

	normalize := newSchemaNormalizeCommand()
	for _, flagName := range []string{"schema", "data", "alias"} {
		assert.NotNil(t, normalize.Flags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestNewTokenAndCatalogCommands(t *testing.T) {
	t.Parallel()

	token := NewTokenCommand()
	assert.Equal(t, "token", token.Use)
	assert.Equal(t, []string{"issue"}, subcommandNames(token))
	assert.NotNil(t, newTokenIssueCommand().Flags().Lookup("show-id"))

	catalog := NewCatalogCommand()
	assert.Equal(t, "catalog", catalog.Use)
	assert.Equal(t, []string{"list"}, subcommandNames(catalog))
	assert.NotNil(t, newCatalogListCommand().Flags().Lookup("type"))
}

func TestAddGlobalFlags(t *testing.T) {
	root := &cobra.Command{Use: "cloudctl"}
	AddGlobalFlags(root)

	for _, flagName := range []string{
		"config", "output", "verbose", "auth-url", "region", "interface", "identity-version",
		"username", "domain", "project", "token-cache", "nats-url",
	} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flagName), "Flag %s should exist", flagName)
	}
}

func TestParseAliases(t *testing.T) {
	t.Parallel()

	aliases, err := parseAliases([]string{"min_disk=minDisk", "protected=isProtected"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"min_disk": "minDisk", "protected": "isProtected"}, aliases)

	for _, bad := range []string{"min_disk", "=minDisk", "min_disk="} {
		_, err = parseAliases([]string{bad})
		assert.Error(t, err, bad)
	}
}
