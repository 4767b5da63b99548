package cmd

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gtriggiano/access-authority-service/pkg/access"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:           "validate [expression]",
	Short:         "Check an access expression for well-formedness",
	Long:          "Check an access expression for well-formedness. Reads the expression from the positional argument, or from stdin if no argument is given.",
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		expression, err := readExpressionArg(cmd, args)
		if err != nil {
			return err
		}
		if err := access.Validate(expression); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	},
}

// readExpressionArg returns args[0] if present, otherwise reads the
// expression from stdin, trimming a single trailing newline.
func readExpressionArg(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading expression from stdin: %w", err)
	}
	return bytes.TrimSuffix(raw, []byte("\n")), nil
}
