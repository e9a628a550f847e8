package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/watchparty-tickets/internal/metrics"
	"github.com/iliyamo/watchparty-tickets/internal/model"
	"github.com/iliyamo/watchparty-tickets/internal/repository"
	"github.com/iliyamo/watchparty-tickets/internal/utils"
)

// Authenticator checks staff credentials against the users table.
type Authenticator struct {
	store repository.Store
	log   *zap.Logger
	// dummyHash is compared against when the username is unknown so
	// that both failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewAuthenticator builds an Authenticator.  cost is the bcrypt cost
// used for the dummy hash and should match the cost of stored hashes.
func NewAuthenticator(store repository.Store, cost int, log *zap.Logger) (*Authenticator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	h, err := utils.HashPassword("watchparty-dummy-password", cost)
	if err != nil {
		return nil, err
	}
	return &Authenticator{store: store, log: log, dummyHash: h}, nil
}

// Authenticate returns the user when username and password match.  A
// wrong password or unknown username yields (nil, nil); an error is
// returned only when the store cannot be read.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.Logins.WithLabelValues("failure").Inc()
		return nil, nil
	}
	u, err := a.store.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		utils.VerifyPassword(a.dummyHash, password)
		metrics.Logins.WithLabelValues("failure").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		a.log.Error("load user failed", zap.String("username", username), zap.Error(err))
		return nil, infraErr("get user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		metrics.Logins.WithLabelValues("failure").Inc()
		a.log.Info("login rejected", zap.String("username", username))
		return nil, nil
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return u, nil
}
