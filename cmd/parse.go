package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtriggiano/access-authority-service/pkg/access"
)

func init() {
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:           "parse <expression>",
	Short:         "Print the parse tree of an access expression as JSON",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		node, err := access.Parse([]byte(args[0]))
		if err != nil {
			return err
		}
		encoded, err := json.MarshalIndent(parseTreeNode(node), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

// parseTreeJSON is the JSON rendering of an access.Node: a leaf carries its
// unescaped authorization, an and/or node carries its operands.
type parseTreeJSON struct {
	Kind          string          `json:"kind"`
	Authorization string          `json:"authorization,omitempty"`
	Children      []parseTreeJSON `json:"children,omitempty"`
}

func parseTreeNode(n access.Node) parseTreeJSON {
	switch n.Kind() {
	case access.KindEmpty:
		return parseTreeJSON{Kind: "empty"}
	case access.KindAuthorization:
		return parseTreeJSON{Kind: "authorization", Authorization: string(n.Authorization())}
	case access.KindAnd:
		return parseTreeJSON{Kind: "and", Children: parseTreeChildren(n.Children())}
	case access.KindOr:
		return parseTreeJSON{Kind: "or", Children: parseTreeChildren(n.Children())}
	default:
		return parseTreeJSON{Kind: "unknown"}
	}
}

func parseTreeChildren(children []access.Node) []parseTreeJSON {
	out := make([]parseTreeJSON, len(children))
	for i, child := range children {
		out[i] = parseTreeNode(child)
	}
	return out
}
