package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cloudsdk/internal/registry"
)

type serviceInfo struct {
	Name        string `json:"name"         yaml:"name"`
	CatalogName string `json:"catalog_name" yaml:"catalog_name"`
	CatalogType string `json:"catalog_type" yaml:"catalog_type"`
}

// NewServicesCommand creates the services command.
func NewServicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List supported services",
		Long:  "List the services the builder can create and their catalog defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := registry.Default()

			var (
				services []serviceInfo
				rows     [][]string
			)

			for _, name := range r.Names() {
				def, err := r.Lookup(name)
				if err != nil {
					return err
				}

				services = append(services, serviceInfo{Name: def.Name, CatalogName: def.CatalogName, CatalogType: def.CatalogType})
				rows = append(rows, []string{def.Name, def.CatalogName, def.CatalogType})
			}

			return render(cmd, services, table{
				header: []string{"Service", "Catalog Name", "Catalog Type"},
				rows:   rows,
			})
		},
	}
}
