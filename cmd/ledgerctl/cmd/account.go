package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createCmd represents "ledgerctl create <id>".
var createCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := svc.Create(ctx(), args[0])
		if err != nil {
			exitWithError(fmt.Errorf("create account %s: %w", args[0], err))
			return
		}
		fmt.Printf("account %q created\n", res.ID)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
