package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage an operator's conversation history",
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the conversation history of a member",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		rt, err := loadRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()
		member, err := rt.app.Authenticate(name, phone)
		if err != nil {
			return err
		}
		if err := rt.app.ClearHistory(cmd.Context(), member); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Conversation history cleared.")
		return nil
	},
}

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect stored contacts",
}

var contactsShowCmd = &cobra.Command{
	Use:   "show EMAIL",
	Short: "Print a stored contact as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()
		contact, err := rt.app.Contact(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(contact)
	},
}

func init() {
	historyClearCmd.Flags().String("name", "", "member first name")
	historyClearCmd.Flags().String("phone", "", "member phone number")
	_ = historyClearCmd.MarkFlagRequired("name")
	_ = historyClearCmd.MarkFlagRequired("phone")
}
