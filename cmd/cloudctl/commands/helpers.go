package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/internal/options"
	"github.com/fivetwenty-io/cloudsdk/pkg/builder"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
	"github.com/fivetwenty-io/cloudsdk/pkg/logging"
)

// Common static errors used throughout the commands package.
var (
	ErrSchemaRequired = errors.New("--schema is required")
	ErrDataRequired   = errors.New("--data is required")
	ErrNotAnObject    = errors.New("document must be an object")
)

// AddGlobalFlags registers the persistent flags and binds them to viper.
func AddGlobalFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file (default is $HOME/.cloudctl/config.yml)")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "log HTTP traffic to stderr")
	flags.String("auth-url", "", "identity endpoint, e.g. https://keystone.example.com/v3")
	flags.String("region", "", "region name")
	flags.String("interface", "", "endpoint interface (public, internal, admin)")
	flags.String("identity-version", "", "identity API version (v3, v2)")
	flags.StringP("username", "u", "", "user name")
	flags.String("domain", "", "user domain name")
	flags.StringP("project", "p", "", "project name")
	flags.String("token-cache", "", "token cache backend (memory, file, nats, none)")
	flags.String("nats-url", "", "NATS server for the nats token cache")

	for _, name := range []string{
		"config", "output", "verbose", "auth-url", "region", "interface", "identity-version",
		"username", "domain", "project", "token-cache", "nats-url",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// callOptions reads the per-call option layer from flags, the config file
// and CLOUDCTL_* variables.
func callOptions(cmd *cobra.Command) cloud.Options {
	opts := cloud.Options{
		AuthURL:         viper.GetString("auth-url"),
		Region:          viper.GetString("region"),
		Interface:       viper.GetString("interface"),
		IdentityVersion: viper.GetString("identity-version"),
		Username:        viper.GetString("username"),
		Password:        viper.GetString("password"),
		DomainName:      viper.GetString("domain"),
		ProjectName:     viper.GetString("project"),
	}

	if opts.Interface != "" {
		opts.URLType = opts.Interface + "URL"
	}

	if viper.GetBool("verbose") {
		opts.Debug = true
		opts.Logger = logging.NewConsole(cmd.ErrOrStderr(), "debug")
	}

	return opts
}

// newBuilder combines the environment layer with the flag layer.
func newBuilder(cmd *cobra.Command) (*builder.Builder, cloud.Options, error) {
	global, err := options.FromEnv()
	if err != nil {
		return nil, cloud.Options{}, err
	}

	call := callOptions(cmd)

	if global.AuthURL == "" && call.AuthURL == "" {
		return nil, cloud.Options{}, constants.ErrNoAuthURL
	}

	needsPassword := (global.Username != "" || call.Username != "") && global.Password == "" && call.Password == ""
	if needsPassword && global.TokenID == "" {
		call.Password, err = promptPassword(cmd)
		if err != nil {
			return nil, cloud.Options{}, err
		}
	}

	cache, err := tokenCache(commandContext(cmd))
	if err != nil {
		return nil, cloud.Options{}, err
	}

	call.TokenCache = cache

	return builder.New(global), call, nil
}

func tokenCache(ctx context.Context) (cloud.TokenCache, error) {
	cacheType := cloud.TokenCacheType(viper.GetString("token-cache"))
	if cacheType == "" {
		return nil, nil //nolint:nilnil // no cache configured
	}

	config := &cloud.TokenCacheConfig{Type: cacheType}

	switch cacheType {
	case cloud.TokenCacheFile:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		config.File = &cloud.FileCacheConfig{Path: filepath.Join(home, ".cloudctl", "tokens.yml")}

	case cloud.TokenCacheNATS:
		config.NATS = &cloud.NATSKVConfig{URL: viper.GetString("nats-url")}
	}

	return cloud.NewTokenCacheFromConfig(ctx, config)
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", constants.ErrPasswordRequired
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// createService builds the named service and asserts its concrete type.
func createService[T cloud.Service](cmd *cobra.Command, name string) (T, error) {
	var zero T

	b, call, err := newBuilder(cmd)
	if err != nil {
		return zero, err
	}

	svc, err := b.CreateService(commandContext(cmd), name, call)
	if err != nil {
		return zero, err
	}

	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", constants.ErrInvalidServiceType, name, svc)
	}

	return typed, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// table is a header plus rows for table output.
type table struct {
	header []string
	rows   [][]string
	empty  string
}

// render writes value in the --output format. Table output uses t.
func render(cmd *cobra.Command, value interface{}, t table) error {
	out := cmd.OutOrStdout()

	switch format := viper.GetString("output"); format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		return encoder.Encode(value)

	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)

	case constants.FormatTable, "":
		if len(t.rows) == 0 && t.empty != "" {
			_, _ = fmt.Fprintln(out, t.empty)

			return nil
		}

		writer := tablewriter.NewWriter(out)
		writer.Header(toCells(t.header)...)

		for _, row := range t.rows {
			err := writer.Append(toCells(row)...)
			if err != nil {
				return fmt.Errorf("failed to add table row: %w", err)
			}
		}

		err := writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil

	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutput, format)
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, value := range values {
		cells[i] = value
	}

	return cells
}

func orNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
