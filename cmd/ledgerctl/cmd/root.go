package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"ledger/internal/config"
	"ledger/internal/eventlog"
	"ledger/internal/service"
)

var (
	svc *service.Service
	rdb *redis.Client

	redisAddr  string
	streamName string
)

// rootCmd is the base command when ledgerctl is called without a
// subcommand. It wires a live Account Service against Redis once, in
// init, shared by every subcommand and the REPL.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate an event-sourced account ledger from the command line",
	Long: `ledgerctl is a command-line interface to the ledger's Account
Service: create accounts, deposit and withdraw funds, and fetch current
snapshots, without going through the HTTP edge.`,
}

// Execute runs the root command; called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis-addr", cfg.Redis.Addr(), "Redis address (host:port)")
	rootCmd.PersistentFlags().StringVar(&streamName, "stream", cfg.Stream.Name, "event stream name")

	cobra.OnInitialize(func() {
		if svc != nil {
			return
		}
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		svc = service.New(eventlog.New(rdb), streamName)
	})

	rootCmd.AddCommand(replCmd)
}

// exitWithError reports a command error without terminating the
// process, so the REPL can keep accepting input after a failed command.
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long:  "Starts a read-eval-print loop for scripted or manual ledger operations.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ledgerctl REPL. Type 'exit' or 'quit' to leave.")
		reader := bufio.NewReader(os.Stdin)

		for {
			fmt.Print("ledger> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				break
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			rootCmd.SetArgs(strings.Fields(line))
			if err := rootCmd.Execute(); err != nil {
				exitWithError(err)
			}
		}
		fmt.Println("goodbye.")
	},
}

func ctx() context.Context {
	return context.Background()
}
