package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtriggiano/access-authority-service/pkg/access"
)

func init() {
	rootCmd.AddCommand(quoteCmd)
}

var quoteCmd = &cobra.Command{
	Use:           "quote <term>",
	Short:         "Quote an authorization term if quoting is required",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		quoted, err := access.Quote([]byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(quoted))
		return nil
	},
}
