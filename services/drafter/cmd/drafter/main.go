package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "drafter",
	Short: "Draft personalized leasing outreach emails",
	Long: `drafter writes leasing outreach emails for known or new contacts.

Run "drafter serve" for the HTTP API or "drafter chat" for the terminal loop.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $DRAFTER_CONFIG or config.yaml)")
	rootCmd.AddCommand(serveCmd, chatCmd, historyCmd, contactsCmd)
	historyCmd.AddCommand(historyClearCmd)
	contactsCmd.AddCommand(contactsShowCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "drafter: %v\n", err)
		os.Exit(1)
	}
}
