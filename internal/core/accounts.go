package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength is the shortest password Register accepts.
const minPasswordLength = 8

// AccountStore persists user accounts.
type AccountStore interface {
	UserStore
	// CreateUser inserts u with the given password hash. A taken email is
	// reported as ErrEmailExists.
	CreateUser(ctx context.Context, u User, passwordHash string) (User, error)
	// UserCredentials returns the user with email and their password hash.
	UserCredentials(ctx context.Context, email string) (User, string, error)
	Users(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// RegisterRequest is the data needed to create an account.
type RegisterRequest struct {
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	ContactNumber string `json:"contactNumber"`
}

// Accounts registers, authenticates and manages users.
type Accounts struct {
	store  AccountStore
	cost   int
	logger *slog.Logger
}

// AccountsOption configures Accounts.
type AccountsOption func(*Accounts)

// WithPasswordCost sets the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) AccountsOption {
	return func(a *Accounts) { a.cost = cost }
}

// NewAccounts creates an Accounts backed by store.
func NewAccounts(store AccountStore, logger *slog.Logger, opts ...AccountsOption) *Accounts {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Accounts{store: store, cost: bcrypt.DefaultCost, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates a user with the default role. The password is stored as
// a bcrypt hash.
func (a *Accounts) Register(ctx context.Context, req RegisterRequest) (User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.Email = normalizeEmail(req.Email)

	var problems []string
	if req.Name == "" {
		problems = append(problems, "name")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		problems = append(problems, "email")
	}
	if len(req.Password) < minPasswordLength {
		problems = append(problems, "password")
	}
	if len(problems) > 0 {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidAccount, strings.Join(problems, ", "))
	}

	if _, _, err := a.store.UserCredentials(ctx, req.Email); err == nil {
		return User{}, fmt.Errorf("register %s: %w", req.Email, ErrEmailExists)
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, fmt.Errorf("look up %s: %w", req.Email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.store.CreateUser(ctx, User{
		Name:          req.Name,
		Surname:       req.Surname,
		Email:         req.Email,
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		Role:          RoleUser,
	}, string(hash))
	if err != nil {
		return User{}, fmt.Errorf("register %s: %w", req.Email, err)
	}

	a.logger.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate returns the user whose email and password match. Unknown
// emails and wrong passwords both report ErrInvalidCredentials.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := a.store.UserCredentials(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// User loads account id on behalf of the caller. Callers other than the
// account owner need the admin role.
func (a *Accounts) User(ctx context.Context, id int64) (User, error) {
	if err := authorizeAccount(ctx, id); err != nil {
		return User{}, err
	}
	return a.store.UserByID(ctx, id)
}

// Users lists every account. Only admins may list accounts.
func (a *Accounts) Users(ctx context.Context) ([]User, error) {
	if RoleFromContext(ctx) != RoleAdmin {
		return nil, ErrForbidden
	}
	users, err := a.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes account id and the mapping rules it owns.
func (a *Accounts) DeleteUser(ctx context.Context, id int64) error {
	if err := authorizeAccount(ctx, id); err != nil {
		return err
	}
	if err := a.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	a.logger.Info("user deleted", "user_id", id)
	return nil
}

func authorizeAccount(ctx context.Context, id int64) error {
	caller, ok := UserIDFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	if caller != id && RoleFromContext(ctx) != RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
