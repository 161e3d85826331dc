package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"expensemanager/internal/auth"
	"expensemanager/internal/cli"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
)

func main() {
	var (
		username = flag.String("username", "", "login name (required)")
		fullName = flag.String("full-name", "", "display name, defaults to the username")
		password = flag.String("password", "", "password; falls back to $EXPENSE_USER_PASSWORD, may be empty when updating")
		roles    = flag.String("roles", "", `comma-separated roles, e.g. "System Manager"`)
		disabled = flag.Bool("disabled", false, "create the account disabled")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentAuth)
	cfg := cli.LoadAndValidateConfig(logger)

	pwd := *password
	if pwd == "" {
		pwd = os.Getenv("EXPENSE_USER_PASSWORD")
	}

	ctx := context.Background()
	store, _ := cli.InitBackend(ctx, logger, cfg)
	defer store.Close()

	u, err := auth.SaveUser(ctx, store.Backend, auth.UserSpec{
		Username: *username,
		FullName: *fullName,
		Password: pwd,
		Enabled:  !*disabled,
		Roles:    parseRoles(*roles),
	})
	if err != nil {
		logger.Error("Failed to save user", log.FieldUser, *username, log.FieldError, err)
		fmt.Fprintln(os.Stderr, "expense-useradd:", err)
		os.Exit(1)
	}

	logger.Info("User saved",
		log.FieldUser, u.Username,
		"roles", len(u.Roles),
		"enabled", u.Enabled,
		"backend", cfg.DataBackend)
}

func parseRoles(s string) []core.Role {
	var out []core.Role
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, core.Role(r))
		}
	}
	return out
}
