package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/internal/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with JSON schemas",
		Long:  "Normalize and validate documents against a JSON schema such as the one served at /v2/schemas/image",
	}

	cmd.AddCommand(newSchemaNormalizeCommand())
	cmd.AddCommand(newSchemaValidateCommand())

	return cmd
}

func newSchemaNormalizeCommand() *cobra.Command {
	var (
		schemaFile string
		dataFile   string
		aliasArgs  []string
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a document",
		Long:  "Keep only the writable properties the schema declares, reading aliased keys where given",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, data, err := loadSchemaAndData(schemaFile, dataFile)
			if err != nil {
				return err
			}

			subject, ok := data.(map[string]interface{})
			if !ok {
				return fmt.Errorf("%s: %w", dataFile, ErrNotAnObject)
			}

			aliases, err := parseAliases(aliasArgs)
			if err != nil {
				return err
			}

			normalized := parsed.NormalizeObject(subject, aliases)

			rows := make([][]string, 0, len(normalized))
			for _, path := range parsed.PropertyPaths() {
				value, ok := normalized[strings.TrimPrefix(path, "/")]
				if ok {
					rows = append(rows, []string{path, fmt.Sprint(value)})
				}
			}

			return render(cmd, normalized, table{
				header: []string{"Property", "Value"},
				rows:   rows,
				empty:  "No writable properties found",
			})
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "JSON schema file")
	cmd.Flags().StringVar(&dataFile, "data", "", "JSON or YAML document")
	cmd.Flags().StringArrayVar(&aliasArgs, "alias", nil, "alias as canonical=alias (repeatable)")

	return cmd
}

func newSchemaValidateCommand() *cobra.Command {
	var (
		schemaFile string
		dataFile   string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a document",
		Long:  "Check a document against the schema and list every violation",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, data, err := loadSchemaAndData(schemaFile, dataFile)
			if err != nil {
				return err
			}

			err = parsed.Validate(data)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Document is valid")

			return nil
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "JSON schema file")
	cmd.Flags().StringVar(&dataFile, "data", "", "JSON or YAML document")

	return cmd
}

func loadSchemaAndData(schemaFile, dataFile string) (*schema.Schema, interface{}, error) {
	if schemaFile == "" {
		return nil, nil, ErrSchemaRequired
	}

	if dataFile == "" {
		return nil, nil, ErrDataRequired
	}

	body, err := os.ReadFile(schemaFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema: %w", err)
	}

	parsed, err := schema.New(body)
	if err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(dataFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read data: %w", err)
	}

	var data interface{}

	err = yaml.Unmarshal(raw, &data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse data: %w", err)
	}

	return parsed, data, nil
}

func parseAliases(args []string) (map[string]string, error) {
	aliases := make(map[string]string, len(args))

	for _, arg := range args {
		canonical, alias, ok := strings.Cut(arg, "=")
		if !ok || canonical == "" || alias == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidAliasFormat, arg)
		}

		aliases[canonical] = alias
	}

	return aliases, nil
}
