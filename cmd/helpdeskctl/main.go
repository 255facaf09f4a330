// helpdeskctl is the operator tool for the help-desk service. It applies
// schema migrations and provisions accounts, typically the first
// administrator, directly against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/persistence"
	"github.com/deskline/helpdesk-service/internal/service"
)

const usage = `usage: helpdeskctl <command> [flags]

commands:
  migrate       apply the schema for the configured STORE_DRIVER
  create-user   create an account with an explicit role
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("command required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	switch args[0] {
	case "migrate":
		return migrate(ctx, cfg, logger, args[1:])
	case "create-user":
		return createUser(ctx, cfg, logger, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.Store.MigrationsDir, "dir", cfg.Store.MigrationsDir, "directory of .sql migrations (postgres only)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg.Store.AutoMigrate = true
	backend, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	backend.Close()
	logger.Info("migrations applied", zap.String("driver", backend.Driver))
	return nil
}

func createUser(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	var name, email, password, roleFlag string
	flagSet := pflag.NewFlagSet("create-user", pflag.ContinueOnError)
	flagSet.StringVar(&name, "name", "", "display name")
	flagSet.StringVar(&email, "email", "", "login email")
	flagSet.StringVar(&password, "password", "", "initial password")
	flagSet.StringVar(&roleFlag, "role", string(domain.RoleAdmin), "EMPLOYEE, TECHNICIAN or ADMIN")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	role, ok := domain.ParseRole(roleFlag)
	if !ok {
		return fmt.Errorf("unknown role %q", roleFlag)
	}

	backend, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	accounts := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: backend.Store.Users})
	user, err := accounts.Provision(ctx, name, email, password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
