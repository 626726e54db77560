package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// minorUnits converts a human-entered decimal amount (e.g. "12.50") to
// the integer minor-unit value the domain works in. Decimal parsing
// never leaks past this CLI input boundary — the wire/domain type stays
// an int64, per spec.md's funds definition.
func minorUnits(amountStr string) (int64, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// depositCmd represents "ledgerctl deposit <id> <amount>".
var depositCmd = &cobra.Command{
	Use:   "deposit <id> <amount>",
	Short: "Deposit funds into an account (amount in major units, e.g. 12.50)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		amount, err := minorUnits(args[1])
		if err != nil {
			exitWithError(err)
			return
		}

		res, err := svc.Deposit(ctx(), args[0], amount)
		if err != nil {
			exitWithError(fmt.Errorf("deposit into %s: %w", args[0], err))
			return
		}
		if res == nil {
			exitWithError(fmt.Errorf("deposit into %s: conflict, retry", args[0]))
			return
		}
		fmt.Printf("deposited %d into %q\n", res.Amount, res.ID)
	},
}

// withdrawCmd represents "ledgerctl withdraw <id> <amount>".
var withdrawCmd = &cobra.Command{
	Use:   "withdraw <id> <amount>",
	Short: "Withdraw funds from an account (amount in major units, e.g. 12.50)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		amount, err := minorUnits(args[1])
		if err != nil {
			exitWithError(err)
			return
		}

		res, err := svc.Withdraw(ctx(), args[0], amount)
		if err != nil {
			exitWithError(fmt.Errorf("withdraw from %s: %w", args[0], err))
			return
		}
		if res == nil {
			exitWithError(fmt.Errorf("withdraw from %s: conflict, retry", args[0]))
			return
		}
		fmt.Printf("withdrew %d from %q\n", res.Amount, res.ID)
	},
}

func init() {
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
}
