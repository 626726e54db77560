package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// fetchCmd represents "ledgerctl fetch <id>".
var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch an account's current snapshot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := svc.Fetch(ctx(), args[0])
		if err != nil {
			exitWithError(fmt.Errorf("fetch %s: %w", args[0], err))
			return
		}
		fmt.Printf("id=%s version=%d timestamp=%s funds=%d\n", snap.ID, snap.Version, snap.Timestamp, snap.Funds)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
