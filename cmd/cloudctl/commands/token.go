package commands

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage tokens",
		Long:  "Issue identity tokens",
	}

	cmd.AddCommand(newTokenIssueCommand())

	return cmd
}

type tokenInfo struct {
	ID        string    `json:"id"         yaml:"id"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
	User      string    `json:"user"       yaml:"user"`
	Project   string    `json:"project"    yaml:"project"`
	Methods   []string  `json:"methods"    yaml:"methods"`
}

func newTokenIssueCommand() *cobra.Command {
	var showID bool

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a token",
		Long:  "Authenticate and print the issued token. The token ID is masked in table output unless --show-id is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, call, err := newBuilder(cmd)
			if err != nil {
				return err
			}

			token, err := b.Token(commandContext(cmd), call)
			if err != nil {
				return err
			}

			info := summarizeToken(token)

			id := constants.MaskedSecret
			if showID {
				id = info.ID
			}

			return render(cmd, info, table{
				header: []string{"Property", "Value"},
				rows: [][]string{
					{"ID", id},
					{"Expires", info.ExpiresAt.Format(time.RFC3339)},
					{"User", orNA(info.User)},
					{"Project", orNA(info.Project)},
					{"Methods", strings.Join(info.Methods, ", ")},
				},
			})
		},
	}

	cmd.Flags().BoolVar(&showID, "show-id", false, "print the token ID in table output")

	return cmd
}

func summarizeToken(token *cloud.Token) tokenInfo {
	info := tokenInfo{ID: token.ID, ExpiresAt: token.ExpiresAt, Methods: token.Methods}

	if token.User != nil {
		info.User = token.User.Name
	}

	if token.Project != nil {
		info.Project = token.Project.Name
	}

	return info
}
