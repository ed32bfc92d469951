package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

const (
	minNameLength = 2
	maxNameLength = 50
)

// AuthService handles registration, login and bearer-token authentication.
type AuthService struct {
	users          UserRepository
	tokens         *TokenIssuer
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserRepository, tokens *TokenIssuer, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(users, tokens, nil, nil, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with explicit password functions and logger.
func NewAuthServiceWithLogger(users UserRepository, tokens *TokenIssuer, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if hash == nil {
		hash = HashPassword
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:          users,
		tokens:         tokens,
		hashPassword:   hash,
		verifyPassword: verify,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates an account. Role defaults to EMPLOYEE.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID, "role", string(user.Role)).InfoContext(ctx, "user registered")
	}()

	role, vErr := validateRegistration(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	creds := UserCredentials{
		User: User{
			ID:        s.idGenerator(),
			Email:     email,
			FirstName: strings.TrimSpace(params.FirstName),
			LastName:  strings.TrimSpace(params.LastName),
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}

	user, err = s.users.CreateUser(ctx, creds)
	if err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrAlreadyExists) {
			err = fmt.Errorf("email already in use: %w", ErrAlreadyExists)
		}
		return
	}
	return
}

// Login checks credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not fully configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verifyErr := s.verifyPassword(creds.PasswordHash, params.Password); verifyErr != nil {
		if !errors.Is(verifyErr, ErrInvalidCredentials) {
			logger.WarnContext(ctx, "stored password hash rejected", "error", verifyErr)
		}
		err = ErrInvalidCredentials
		return
	}

	var token string
	var expiresAt time.Time
	token, expiresAt, err = s.tokens.Issue(creds.User)
	if err != nil {
		return
	}

	result = LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: creds.User}
	return
}

// Authenticate resolves a bearer token into a principal. The role is read from
// storage so role changes apply to tokens already issued.
func (s *AuthService) Authenticate(ctx context.Context, token string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if s.users == nil || s.tokens == nil {
		return User{}, fmt.Errorf("auth service not fully configured")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return User{}, err
	}
	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	return user, nil
}

// CurrentUser returns the account behind principal.
func (s *AuthService) CurrentUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthenticated
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			return User{}, ErrUnauthenticated
		}
		return User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(params RegisterParams) (Role, *ValidationError) {
	vErr := &ValidationError{}

	email := strings.TrimSpace(params.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		vErr.add("email", "email is invalid")
	}

	if msg := validatePasswordStrength(params.Password); msg != "" {
		vErr.add("password", msg)
	}

	checkName := func(field, value string) {
		length := len([]rune(strings.TrimSpace(value)))
		if length < minNameLength || length > maxNameLength {
			vErr.add(field, fmt.Sprintf("%s must be between %d and %d characters", field, minNameLength, maxNameLength))
		}
	}
	checkName("firstName", params.FirstName)
	checkName("lastName", params.LastName)

	role := RoleEmployee
	if params.Role != "" {
		parsed, ok := ParseRole(params.Role)
		if !ok {
			vErr.add("role", "role must be one of EMPLOYEE, MANAGER, ADMIN")
		}
		role = parsed
	}
	return role, vErr
}
