package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	compute "github.com/fivetwenty-io/cloudsdk/internal/services/compute/v2"
)

// NewServersCommand creates the servers command group.
func NewServersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "servers",
		Aliases: []string{"server"},
		Short:   "Manage servers",
		Long:    "List compute servers",
	}

	cmd.AddCommand(newServersListCommand())

	return cmd
}

func newServersListCommand() *cobra.Command {
	var opts compute.ListServersOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List servers",
		Long:  "List servers with details",
		RunE: func(cmd *cobra.Command, args []string) error {
			nova, err := createService[*compute.Service](cmd, compute.Name)
			if err != nil {
				return err
			}

			servers, err := nova.ListServers(commandContext(cmd), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(servers))
			for _, server := range servers {
				rows = append(rows, []string{server.ID, server.Name, server.Status, orNA(server.ImageID()), strconv.Itoa(countAddresses(server))})
			}

			return render(cmd, servers, table{
				header: []string{"ID", "Name", "Status", "Image", "Addresses"},
				rows:   rows,
				empty:  "No servers found",
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "filter by name (regular expression)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of servers")

	return cmd
}

func countAddresses(server compute.Server) int {
	count := 0
	for _, addresses := range server.Addresses {
		count += len(addresses)
	}

	return count
}
