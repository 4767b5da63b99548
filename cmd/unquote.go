package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtriggiano/access-authority-service/pkg/access"
)

func init() {
	rootCmd.AddCommand(unquoteCmd)
}

var unquoteCmd = &cobra.Command{
	Use:           "unquote <term>",
	Short:         "Strip quoting and escaping from an authorization term",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		unquoted, err := access.Unquote([]byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(unquoted))
		return nil
	},
}
