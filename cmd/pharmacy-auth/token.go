package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-pharmacy-auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect session tokens",
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify <token>",
	Short: "Verify a token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		claims, err := app.tokens.Validate(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(claimsView(claims)))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenVerifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func claimsView(claims auth.AuthClaims) map[string]any {
	role, _ := auth.ParseRole(claims.Role())
	return map[string]any{
		"user_id":         claims.UserID(),
		"email":           claims.Email(),
		"role":            claims.Role(),
		"organization_id": claims.OrganizationID(),
		"issued_at":       claims.IssuedAt(),
		"expires_at":      claims.Expires(),
		"actions":         auth.AllowedActions(role),
	}
}
