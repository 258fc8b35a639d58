package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	networking "github.com/fivetwenty-io/cloudsdk/internal/services/networking/v2"
)

// NewNetworksCommand creates the networks command group.
func NewNetworksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "networks",
		Aliases: []string{"network", "net"},
		Short:   "Manage networks",
		Long:    "List networks",
	}

	cmd.AddCommand(newNetworksListCommand())

	return cmd
}

func newNetworksListCommand() *cobra.Command {
	var (
		opts   networking.ListNetworksOpts
		shared bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List networks",
		Long:  "List networks visible to the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("shared") {
				opts.Shared = &shared
			}

			neutron, err := createService[*networking.Service](cmd, networking.Name)
			if err != nil {
				return err
			}

			networks, err := neutron.ListNetworks(commandContext(cmd), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(networks))
			for _, network := range networks {
				rows = append(rows, []string{network.ID, network.Name, network.Status, strconv.FormatBool(network.Shared), strings.Join(network.Subnets, ", ")})
			}

			return render(cmd, networks, table{
				header: []string{"ID", "Name", "Status", "Shared", "Subnets"},
				rows:   rows,
				empty:  "No networks found",
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "filter by name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&shared, "shared", false, "filter by shared state")

	return cmd
}
