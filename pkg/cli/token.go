package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/porticohq/portico/pkg/directory"
)

func newTokenCommand() *Command {
	cmd := &Command{
		Name:        "token",
		Description: "Mint an API token for an existing actor",
		Flags:       flag.NewFlagSet("token", flag.ExitOnError),
		Run:         runToken,
	}

	cmd.Flags.String("database-url", "", "Postgres connection string (defaults to PORTICO_POSTGRES_URL)")
	cmd.Flags.String("actor", "", "Actor username the token authenticates as")
	cmd.Flags.String("name", "cli", "Token name")
	cmd.Flags.Int("ttl", 0, "Token lifetime in hours (0 means no expiry)")

	return cmd
}

func runToken(args []string) error {
	cmd := newTokenCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	databaseURL := resolveDatabaseURL(cmd.Flags.Lookup("database-url").Value.String())
	username := cmd.Flags.Lookup("actor").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	ttl, _ := strconv.Atoi(cmd.Flags.Lookup("ttl").Value.String())

	if username == "" {
		return fmt.Errorf("actor is required")
	}

	ctx := context.Background()
	db, err := openDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	store := directory.NewPostgresStore(db)

	actor, err := store.GetActorByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to look up actor %q: %w", username, err)
	}
	if !actor.IsActive {
		return fmt.Errorf("actor %q is deactivated", username)
	}

	token, err := mintToken(ctx, store, actor.ID, name, ttl)
	if err != nil {
		return err
	}

	fmt.Printf("API token for %q (shown once, store it safely):\n\n  %s\n", actor.Username, token)
	return nil
}
