package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-pharmacy-auth"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session on this machine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		manager, err := app.sessionManager()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		res, err := app.auther().Login(ctx, loginEmail, loginPassword)
		if err != nil {
			return err
		}

		state, err := manager.Login(ctx, res.User, res.Token)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s, %s)\n", state.User.Email, state.User.Role, state.Mode)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the local session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		manager, err := app.sessionManager()
		if err != nil {
			return err
		}
		if _, err := manager.Restore(cmd.Context()); err != nil {
			return err
		}
		return manager.Logout(cmd.Context())
	},
}

var whoamiMode string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the local session and what it may access",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		manager, err := app.sessionManager()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		state, err := manager.Restore(ctx)
		if err != nil {
			return err
		}
		if whoamiMode != "" {
			if err := manager.SetMode(ctx, auth.Mode(whoamiMode)); err != nil {
				return err
			}
			state = manager.Snapshot()
		}

		if !state.IsAuthenticated {
			fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(map[string]any{
			"user":       state.User,
			"mode":       state.Mode,
			"navigation": manager.Navigation(),
		}))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	whoamiCmd.Flags().StringVar(&whoamiMode, "mode", "", "Switch the navigation set: RETAIL or HOSPITAL")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
