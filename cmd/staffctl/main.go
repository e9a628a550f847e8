// Command staffctl provisions staff accounts.  Accounts cannot be
// created over the API.
//
//	staffctl --username wanjiru --name "Wanjiru K" --role staff --password '...'
//
// The password may also be given in STAFF_PASSWORD to keep it out of
// the shell history.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/watchparty-tickets/internal/config"
	"github.com/iliyamo/watchparty-tickets/internal/database"
	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
	"github.com/iliyamo/watchparty-tickets/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "staffctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("staffctl", pflag.ContinueOnError)
	username := fs.String("username", "", "login name (required)")
	name := fs.String("name", "", "display name")
	role := fs.String("role", model.RoleStaff, "admin or staff")
	password := fs.String("password", "", "password; defaults to $STAFF_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u := model.User{
		ID:       uuid.NewString(),
		Username: strings.TrimSpace(*username),
		Name:     strings.TrimSpace(*name),
		Role:     strings.ToLower(strings.TrimSpace(*role)),
	}
	if u.Username == "" {
		return errors.New("--username is required")
	}
	if u.Role != model.RoleAdmin && u.Role != model.RoleStaff {
		return fmt.Errorf("invalid --role %q: want admin or staff", *role)
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	pass := *password
	if pass == "" {
		pass = os.Getenv("STAFF_PASSWORD")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreMySQL {
		return errors.New("staffctl needs STORE_DRIVER=mysql")
	}
	hash, err := utils.HashPassword(pass, cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repository.NewSQLStore(db).CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return fmt.Errorf("username %q is taken", u.Username)
		}
		return err
	}
	fmt.Printf("created %s account %q (%s)\n", u.Role, u.Username, u.ID)
	return nil
}
