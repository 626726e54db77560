// Command ledgerctl is an operator-facing CLI for scripted or manual
// interaction with the ledger, operating directly against an in-process
// Account Service (no HTTP hop). Grounded on the pack's cobra root
// command + REPL pattern.
package main

import "ledger/cmd/ledgerctl/cmd"

func main() {
	cmd.Execute()
}
