package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	images "github.com/fivetwenty-io/cloudsdk/internal/services/images/v2"
)

// NewImagesCommand creates the images command group.
func NewImagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "images",
		Aliases: []string{"image"},
		Short:   "Manage images",
		Long:    "List images",
	}

	cmd.AddCommand(newImagesListCommand())

	return cmd
}

func newImagesListCommand() *cobra.Command {
	var opts images.ListImagesOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images",
		Long:  "List images visible to the current project",
		RunE: func(cmd *cobra.Command, args []string) error {
			glance, err := createService[*images.Service](cmd, images.Name)
			if err != nil {
				return err
			}

			list, err := glance.ListImages(commandContext(cmd), opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(list))
			for _, image := range list {
				rows = append(rows, []string{image.ID, image.Name, image.Status, image.Visibility, orNA(image.DiskFormat), strconv.FormatInt(image.Size, 10)})
			}

			return render(cmd, list, table{
				header: []string{"ID", "Name", "Status", "Visibility", "Disk Format", "Size"},
				rows:   rows,
				empty:  "No images found",
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "filter by name")
	cmd.Flags().StringVar(&opts.Visibility, "visibility", "", "filter by visibility")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "filter by tag (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of images")

	return cmd
}
