package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-pharmacy-auth"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision demo accounts from a fixture file",
	Long: `Provision an organization and its accounts from a YAML fixture:

  organization:
    name: Demo Pharmacy
    mode: RETAIL
    join_code: 01HDEMO0000000000000000000
  accounts:
    - name: Demo Admin
      email: admin@demo.test
      password: change-me-now
      role: ADMIN

Passwords are hashed like any registration. Running it again updates
the same accounts.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the YAML fixture")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

func readFixture(path string) (auth.SeedFixture, error) {
	var fixture auth.SeedFixture

	raw, err := os.ReadFile(path)
	if err != nil {
		return fixture, errors.Wrap(err, errors.CategoryInternal, "failed to read fixture").
			WithMetadata(map[string]any{"path": path})
	}
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fixture, errors.Wrap(err, errors.CategoryBadInput, "failed to parse fixture").
			WithMetadata(map[string]any{"path": path})
	}
	return fixture, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	fixture, err := readFixture(seedFile)
	if err != nil {
		return err
	}

	app, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := auth.CreateSchema(ctx, app.db); err != nil {
		return err
	}

	users, err := auth.SeedAccounts(ctx, app.repo, app.hasher, fixture,
		auth.WithSeedLogger(app.GetLogger("seed")),
		auth.WithSeedActivitySink(app.activitySink()),
	)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(users))
	return nil
}
