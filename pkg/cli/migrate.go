package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/porticohq/portico/pkg/assistant"
	"github.com/porticohq/portico/pkg/directory"
	"github.com/porticohq/portico/pkg/notes"
)

func newMigrateCommand() *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Run database migrations and seed the module catalog",
		Flags:       flag.NewFlagSet("migrate", flag.ExitOnError),
		Run:         runMigrate,
	}

	cmd.Flags.String("database-url", "", "Postgres connection string (defaults to PORTICO_POSTGRES_URL)")
	cmd.Flags.String("manifest", "", "Optional module manifest file to seed instead of the built-in catalog")

	return cmd
}

func runMigrate(args []string) error {
	cmd := newMigrateCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	databaseURL := resolveDatabaseURL(cmd.Flags.Lookup("database-url").Value.String())
	manifestPath := cmd.Flags.Lookup("manifest").Value.String()

	ctx := context.Background()
	db, err := openDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := directory.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := notes.NewPostgresStore(db).EnsureSchema(ctx); err != nil {
		return err
	}
	if err := assistant.NewPostgresStore(db).EnsureSchema(ctx); err != nil {
		return err
	}

	manifest := directory.DefaultModuleManifest()
	if manifestPath != "" {
		manifest, err = directory.LoadModuleManifest(manifestPath)
		if err != nil {
			return err
		}
	}
	store := directory.NewPostgresStore(db)
	if err := directory.SeedModules(ctx, store, manifest); err != nil {
		return fmt.Errorf("failed to seed module catalog: %w", err)
	}

	fmt.Println("Migrations applied and module catalog seeded")
	return nil
}
