package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the service catalog",
		Long:  "Show the service catalog returned with a token",
	}

	cmd.AddCommand(newCatalogListCommand())

	return cmd
}

type catalogRow struct {
	Name      string `json:"name"      yaml:"name"`
	Type      string `json:"type"      yaml:"type"`
	Interface string `json:"interface" yaml:"interface"`
	Region    string `json:"region"    yaml:"region"`
	URL       string `json:"url"       yaml:"url"`
}

func newCatalogListCommand() *cobra.Command {
	var serviceType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog endpoints",
		Long:  "Authenticate and list every endpoint in the service catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, call, err := newBuilder(cmd)
			if err != nil {
				return err
			}

			token, err := b.Token(commandContext(cmd), call)
			if err != nil {
				return err
			}

			endpoints := flattenCatalog(token.Catalog, serviceType)

			rows := make([][]string, 0, len(endpoints))
			for _, endpoint := range endpoints {
				rows = append(rows, []string{endpoint.Name, endpoint.Type, endpoint.Interface, orNA(endpoint.Region), endpoint.URL})
			}

			return render(cmd, endpoints, table{
				header: []string{"Name", "Type", "Interface", "Region", "URL"},
				rows:   rows,
				empty:  "No catalog entries found",
			})
		},
	}

	cmd.Flags().StringVar(&serviceType, "type", "", "only show services of this type")

	return cmd
}

func flattenCatalog(catalog *cloud.Catalog, serviceType string) []catalogRow {
	var rows []catalogRow

	if catalog == nil {
		return rows
	}

	for _, entry := range catalog.Entries {
		if serviceType != "" && entry.Type != serviceType {
			continue
		}

		for _, endpoint := range entry.Endpoints {
			rows = append(rows, catalogRow{
				Name:      entry.Name,
				Type:      entry.Type,
				Interface: endpoint.Interface,
				Region:    endpoint.Region,
				URL:       endpoint.URL,
			})
		}
	}

	return rows
}
