// seed loads demo accounts and issues into the database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/smartcity/civicdash/app/repository"
	"github.com/smartcity/civicdash/internal/pkg/database"
	"github.com/smartcity/civicdash/internal/pkg/env"
	"github.com/smartcity/civicdash/internal/pkg/identity"
	"github.com/smartcity/civicdash/internal/pkg/issues"
	"github.com/smartcity/civicdash/internal/pkg/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var filePath string
	var dryRun bool

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "cmd/seed/demo.yml", "path to the YAML seed file")
	flagSet.BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	f, err := seed.Load(filePath)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("%s: %d users, %d issues\n", filePath, len(f.Users), len(f.Issues))
		return nil
	}

	env.SetupEnvFile()
	database.SetupDatabase()
	repos := repository.NewRepositories(database.GetDB())

	cfg, err := identity.LoadConfig()
	if err != nil {
		return err
	}
	// Seed files may contain admin accounts.
	cfg.AllowAdminSignup = true

	seeder := &seed.Seeder{
		Identity: identity.NewService(repos.Profile, repos.ProviderAccount, identity.NewMemoryRefreshStore(), cfg),
		Issues:   issues.NewService(repos.Issue, repos.Profile),
		Profiles: repos.Profile,
	}
	res, err := seeder.Apply(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Printf("users created: %d, already present: %d, issues created: %d, already present: %d\n",
		res.UsersCreated, res.UsersExisting, res.Issues, res.IssuesExisting)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: seed [--file path] [--dry-run]")
	fmt.Fprintln(os.Stderr)
	flagSet.PrintDefaults()
}
