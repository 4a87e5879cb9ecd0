package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/porticohq/portico/pkg/directory"
)

func newTenantCommand() *Command {
	cmd := &Command{
		Name:        "tenant",
		Description: "Provision a tenant together with its owner",
		Flags:       flag.NewFlagSet("tenant", flag.ExitOnError),
		Run:         runTenant,
	}

	cmd.Flags.String("database-url", "", "Postgres connection string (defaults to PORTICO_POSTGRES_URL)")
	cmd.Flags.String("name", "", "Tenant display name")
	cmd.Flags.String("slug", "", "Tenant slug (derived from the name when empty)")
	cmd.Flags.String("owner", "", "Owner username")
	cmd.Flags.String("owner-email", "", "Owner email")

	return cmd
}

func runTenant(args []string) error {
	cmd := newTenantCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	databaseURL := resolveDatabaseURL(cmd.Flags.Lookup("database-url").Value.String())
	name := cmd.Flags.Lookup("name").Value.String()
	slug := cmd.Flags.Lookup("slug").Value.String()
	owner := cmd.Flags.Lookup("owner").Value.String()
	ownerEmail := cmd.Flags.Lookup("owner-email").Value.String()

	if name == "" || owner == "" {
		return fmt.Errorf("name and owner are required")
	}

	db, err := openDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	store := directory.NewPostgresStore(db)

	tenant, ownerActor, err := store.ProvisionTenant(context.Background(), directory.ProvisionTenantRequest{
		Name:          name,
		Slug:          slug,
		OwnerUsername: owner,
		OwnerEmail:    ownerEmail,
	})
	if err != nil {
		return fmt.Errorf("failed to provision tenant: %w", err)
	}

	fmt.Printf("Provisioned tenant %q (id %d, slug %q) with owner %q (actor %d)\n",
		tenant.Name, tenant.ID, tenant.Slug, ownerActor.Username, ownerActor.ID)
	return nil
}
