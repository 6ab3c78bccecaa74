package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/bookcart/apiserver/internal/store"
	"github.com/bookcart/apiserver/types"
)

// ErrInvalidCredentials is returned by Authenticate for both an unknown
// username and a wrong password. Callers cannot distinguish the two from
// the error value; the cause is only logged server-side.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// PasswordCodec hashes and verifies plaintext credentials.
type PasswordCodec interface {
	Hash(plaintext string) string
	Verify(plaintext, storedDigest string) bool
}

// Registration carries the fields accepted from a registration request.
// The plaintext password never leaves this struct unhashed.
type Registration struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Gender    string
}

// UserService encapsulates registration and authentication use-cases.
type UserService struct {
	repo  UserRepository
	codec PasswordCodec
}

func NewUserService(repo UserRepository, codec PasswordCodec) *UserService {
	return &UserService{repo: repo, codec: codec}
}

// CheckUsernameAvailable reports whether no user holds the given username.
// It is a pure read, safe for unauthenticated callers, and returns the same
// answer whether called standalone or as the first step of Register.
func (s *UserService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Register creates a new user account with the ordinary user role. A taken
// username yields store.ErrDuplicateUsername, whether caught by the
// availability check or by the unique constraint when two registrations
// race past the check together.
func (s *UserService) Register(ctx context.Context, reg Registration) (types.User, error) {
	available, err := s.CheckUsernameAvailable(ctx, reg.Username)
	if err != nil {
		return types.User{}, err
	}
	if !available {
		return types.User{}, store.ErrDuplicateUsername
	}

	user := types.User{
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Username:     reg.Username,
		PasswordHash: s.codec.Hash(reg.Password),
		Gender:       reg.Gender,
		RoleID:       types.RoleIDUser,
	}
	return s.repo.Create(ctx, user)
}

// Authenticate verifies the credentials and returns the claims bundle for
// the token issuer. Unknown user and wrong password produce the same
// ErrInvalidCredentials; the distinct causes are logged for operators only.
func (s *UserService) Authenticate(ctx context.Context, username, plaintext string) (types.AuthenticatedUser, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("auth: unknown username %q", username)
			return types.AuthenticatedUser{}, ErrInvalidCredentials
		}
		return types.AuthenticatedUser{}, err
	}

	if !s.codec.Verify(plaintext, user.PasswordHash) {
		log.Printf("auth: password mismatch for user %d", user.ID)
		return types.AuthenticatedUser{}, ErrInvalidCredentials
	}

	return types.AuthenticatedUser{
		UserID:   user.ID,
		Username: user.Username,
		Role:     types.RoleName(user.RoleID),
	}, nil
}

// GetByID loads a user by id.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ValidateRegistration checks the request fields and returns a map of
// field name to problem for everything missing or malformed.
func ValidateRegistration(reg Registration) map[string]string {
	problems := make(map[string]string)
	if strings.TrimSpace(reg.FirstName) == "" {
		problems["firstName"] = "first name is required"
	}
	if strings.TrimSpace(reg.LastName) == "" {
		problems["lastName"] = "last name is required"
	}
	if strings.TrimSpace(reg.Username) == "" {
		problems["username"] = "username is required"
	}
	if reg.Password == "" {
		problems["password"] = "password is required"
	}
	if strings.TrimSpace(reg.Gender) == "" {
		problems["gender"] = "gender is required"
	}
	return problems
}
