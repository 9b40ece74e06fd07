// Package user manages app users and third-party login.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// MaxNickNameLength bounds nick names, in characters.
const MaxNickNameLength = 20

var (
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUser is returned for a request that fails validation.
	ErrInvalidUser = errors.New("invalid user")
)

// Role distinguishes truck owners from customers.
type Role string

// Roles.
const (
	RoleCustomer Role = "CUSTOMER"
	RoleOwner    Role = "OWNER"
)

// User is an app user.
type User struct {
	ID       string `json:"id"`
	NickName string `json:"nickName"`
	Role     Role   `json:"role"`
	Email    string `json:"email,omitempty"`
}

// LoginRequest carries a third-party token and the profile used on first login.
type LoginRequest struct {
	Token    string
	NickName string
	Role     Role
}

// LoginResult is the logged-in user and an app access token.
type LoginResult struct {
	User        User
	AccessToken string
	Created     bool
}

// IdentityResolver turns a provider token into an identity.
type IdentityResolver interface {
	Identify(ctx context.Context, provider, token string) (auth.Identity, error)
}

// TokenIssuer issues app access tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// Service stores users and performs logins.
type Service struct {
	store      document.Store
	index      string
	identities IdentityResolver
	tokens     TokenIssuer
	log        logger.Logger
}

// NewService creates a user service over index.
func NewService(store document.Store, index string, identities IdentityResolver, tokens TokenIssuer, log logger.Logger) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("document store is required")
	case identities == nil:
		return nil, errors.New("identity resolver is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	case strings.TrimSpace(index) == "":
		return nil, errors.New("user index is required")
	}
	return &Service{store: store, index: index, identities: identities, tokens: tokens, log: log}, nil
}

// UserID derives the user id for an identity.
func UserID(id auth.Identity) string {
	return id.Provider + "_" + id.Subject
}

// Login resolves req.Token with provider, creates the user on first login and issues an access token.
func (s *Service) Login(ctx context.Context, provider string, req LoginRequest) (LoginResult, error) {
	id, err := s.identities.Identify(ctx, provider, req.Token)
	if err != nil {
		return LoginResult{}, err
	}
	userID := UserID(id)

	u, err := s.Get(ctx, userID)
	created := false
	switch {
	case errors.Is(err, ErrUserNotFound):
		u, err = s.create(ctx, userID, id.Email, req)
		if err != nil {
			return LoginResult{}, err
		}
		created = true
	case err != nil:
		return LoginResult{}, err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.log.Info("user logged in", "user_id", u.ID, "provider", id.Provider, "created", created)
	return LoginResult{User: u, AccessToken: token, Created: created}, nil
}

func (s *Service) create(ctx context.Context, userID, email string, req LoginRequest) (User, error) {
	role := req.Role
	if role == "" {
		role = RoleCustomer
	}
	if role != RoleCustomer && role != RoleOwner {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, role)
	}
	nick := strings.TrimSpace(req.NickName)
	if err := validateNickName(nick, true); err != nil {
		return User{}, err
	}

	u := User{ID: userID, NickName: nick, Role: role, Email: email}
	if err := s.store.IndexDocument(ctx, s.index, u.ID, u); err != nil {
		return User{}, fmt.Errorf("failed to save user: %w", err)
	}
	return u, nil
}

// Get loads the user with id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, fmt.Errorf("%w: id is required", ErrInvalidUser)
	}
	var u User
	if err := s.store.GetDocument(ctx, s.index, id, &u); err != nil {
		if errors.Is(err, document.ErrDocumentMissing) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	u.ID = id
	return u, nil
}

// UpdateNickName changes the nick name of user id and returns the updated user.
func (s *Service) UpdateNickName(ctx context.Context, id, nickName string) (User, error) {
	nickName = strings.TrimSpace(nickName)
	if err := validateNickName(nickName, false); err != nil {
		return User{}, err
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.NickName = nickName
	if err := s.store.IndexDocument(ctx, s.index, u.ID, u); err != nil {
		return User{}, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return u, nil
}

// Delete removes the user with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidUser)
	}
	if err := s.store.DeleteDocument(ctx, s.index, id); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	s.log.Info("user deleted", "user_id", id)
	return nil
}

func validateNickName(nick string, allowEmpty bool) error {
	if nick == "" && !allowEmpty {
		return fmt.Errorf("%w: nick name is required", ErrInvalidUser)
	}
	if utf8.RuneCountInString(nick) > MaxNickNameLength {
		return fmt.Errorf("%w: nick name longer than %d characters", ErrInvalidUser, MaxNickNameLength)
	}
	return nil
}
