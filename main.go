package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bankrecon/cmd/confirm"
	"bankrecon/cmd/ledger"
	"bankrecon/cmd/reconcile"
	"bankrecon/cmd/reject"
	"bankrecon/cmd/root"
	"bankrecon/cmd/runs"
)

func init() {
	// Load environment variables before any configuration is read.
	_ = godotenv.Load()

	root.Init()

	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(confirm.Cmd)
	root.Cmd.AddCommand(reject.Cmd)
	root.Cmd.AddCommand(runs.Cmd)
	root.Cmd.AddCommand(ledger.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
