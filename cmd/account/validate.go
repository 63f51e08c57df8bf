package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Proton-105/storefront-account/internal/account"
)

var confirmAgainst string

var validateCmd = &cobra.Command{
	Use:   "validate <field> <value>",
	Short: "Check a value against a signup field rule",
	Long:  "validate runs the same rule the widget applies when a customer edits the field. confirmpassword is compared with --password.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := account.ParseField(args[0])
		if err != nil {
			return err
		}

		draft := account.NewDraft().With(account.FieldPassword, confirmAgainst)
		if !account.ValidateField(field, args[1], draft) {
			return fmt.Errorf("%s: invalid value (rule %s)", field, account.RuleTag(field))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", field)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&confirmAgainst, "password", "", "password that confirmpassword must match")
}
