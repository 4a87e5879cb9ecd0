package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/porticohq/portico/pkg/authn"
	"github.com/porticohq/portico/pkg/directory"
)

func newBootstrapCommand() *Command {
	cmd := &Command{
		Name:        "bootstrap",
		Description: "Create the first system administrator and mint its API token",
		Flags:       flag.NewFlagSet("bootstrap", flag.ExitOnError),
		Run:         runBootstrap,
	}

	cmd.Flags.String("database-url", "", "Postgres connection string (defaults to PORTICO_POSTGRES_URL)")
	cmd.Flags.String("username", "", "Administrator username")
	cmd.Flags.String("email", "", "Administrator email")
	cmd.Flags.Int("ttl", 0, "Token lifetime in hours (0 means no expiry)")

	return cmd
}

func runBootstrap(args []string) error {
	cmd := newBootstrapCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	databaseURL := resolveDatabaseURL(cmd.Flags.Lookup("database-url").Value.String())
	username := cmd.Flags.Lookup("username").Value.String()
	email := cmd.Flags.Lookup("email").Value.String()
	ttl, _ := strconv.Atoi(cmd.Flags.Lookup("ttl").Value.String())

	if username == "" {
		return fmt.Errorf("username is required")
	}

	ctx := context.Background()
	db, err := openDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	store := directory.NewPostgresStore(db)

	admin := &directory.Actor{
		Username: username,
		Email:    email,
		Role:     directory.RoleSystemAdmin,
		IsActive: true,
	}
	if err := store.CreateActor(ctx, admin); err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	token, err := mintToken(ctx, store, admin.ID, "bootstrap", ttl)
	if err != nil {
		return err
	}

	fmt.Printf("Created system administrator %q (actor %d)\n", admin.Username, admin.ID)
	fmt.Printf("API token (shown once, store it safely):\n\n  %s\n", token)
	return nil
}

// mintToken generates a token, persists its hash and returns the plaintext.
// The plaintext is never stored; this is the only place it exists.
func mintToken(ctx context.Context, store directory.Store, actorID int64, name string, ttlHours int) (string, error) {
	token, tokenHash, err := authn.GenerateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	record := &directory.APIToken{
		ActorID:   actorID,
		TokenHash: tokenHash,
		Name:      name,
	}
	if ttlHours > 0 {
		expires := time.Now().Add(time.Duration(ttlHours) * time.Hour)
		record.ExpiresAt = &expires
	}
	if err := store.CreateAPIToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}
