package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

var cheapArgon2Params = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func cheapHasher(password string) (string, error) {
	return CreatePasswordHash(password, cheapArgon2Params)
}

func newAuthHarness(t *testing.T) (*AuthService, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	issuer, err := NewTokenIssuer("jwt-secret", "flexspace", time.Hour, fixedNow)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	svc := NewAuthServiceWithLogger(store, issuer, cheapHasher, VerifyPassword, sequentialIDs("user"), fixedNow, nil)
	return svc, store
}

func validRegistration() RegisterParams {
	return RegisterParams{
		Email:     "  Jane.Doe@Example.com ",
		Password:  "Sup3rSecret",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates an employee by default", func(t *testing.T) {
		t.Parallel()

		svc, store := newAuthHarness(t)
		user, err := svc.Register(context.Background(), validRegistration())
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if user.ID != "user-1" || user.Role != RoleEmployee {
			t.Fatalf("unexpected user %+v", user)
		}
		if user.Email != "jane.doe@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
		stored := store.users["user-1"]
		if stored.PasswordHash == "" || stored.PasswordHash == "Sup3rSecret" {
			t.Fatalf("expected password to be hashed, got %q", stored.PasswordHash)
		}
		if err := VerifyPassword(stored.PasswordHash, "Sup3rSecret"); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("honours requested role", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthHarness(t)
		params := validRegistration()
		params.Role = string(RoleManager)
		user, err := svc.Register(context.Background(), params)
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if user.Role != RoleManager {
			t.Fatalf("expected MANAGER, got %s", user.Role)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthHarness(t)
		if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
			t.Fatalf("first Register: %v", err)
		}
		params := validRegistration()
		params.Email = "JANE.DOE@example.com"
		_, err := svc.Register(context.Background(), params)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*RegisterParams)
		field  string
	}{
		{name: "missing email", mutate: func(p *RegisterParams) { p.Email = "" }, field: "email"},
		{name: "malformed email", mutate: func(p *RegisterParams) { p.Email = "not-an-email" }, field: "email"},
		{name: "display name email", mutate: func(p *RegisterParams) { p.Email = "Jane <jane@example.com>" }, field: "email"},
		{name: "short password", mutate: func(p *RegisterParams) { p.Password = "Ab1" }, field: "password"},
		{name: "weak password", mutate: func(p *RegisterParams) { p.Password = "alllowercase1" }, field: "password"},
		{name: "short first name", mutate: func(p *RegisterParams) { p.FirstName = "J" }, field: "firstName"},
		{name: "blank last name", mutate: func(p *RegisterParams) { p.LastName = "   " }, field: "lastName"},
		{name: "unknown role", mutate: func(p *RegisterParams) { p.Role = "OWNER" }, field: "role"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, store := newAuthHarness(t)
			params := validRegistration()
			tc.mutate(&params)
			_, err := svc.Register(context.Background(), params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected %s field error, got %#v", tc.field, vErr.FieldErrors)
			}
			if len(store.users) != 0 {
				t.Fatalf("expected no user stored")
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthHarness(t)
	registered, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		t.Parallel()

		result, err := svc.Login(context.Background(), LoginParams{Email: "JANE.DOE@example.com", Password: "Sup3rSecret"})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if result.AccessToken == "" {
			t.Fatalf("expected access token")
		}
		if result.User.ID != registered.ID {
			t.Fatalf("expected user %s, got %s", registered.ID, result.User.ID)
		}
		if !result.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("unexpected expiry %v", result.ExpiresAt)
		}

		user, err := svc.Authenticate(context.Background(), result.AccessToken)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if user.ID != registered.ID || user.Role != RoleEmployee {
			t.Fatalf("unexpected authenticated user %+v", user)
		}
	})

	failures := []struct {
		name   string
		params LoginParams
	}{
		{name: "wrong password", params: LoginParams{Email: "jane.doe@example.com", Password: "Wr0ngPassword"}},
		{name: "unknown email", params: LoginParams{Email: "nobody@example.com", Password: "Sup3rSecret"}},
		{name: "empty password", params: LoginParams{Email: "jane.doe@example.com"}},
	}
	for _, tc := range failures {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.Login(context.Background(), tc.params)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthHarness(t)
		if _, err := svc.Authenticate(context.Background(), "not-a-token"); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("rejects tokens for deleted users", func(t *testing.T) {
		t.Parallel()

		svc, _ := newAuthHarness(t)
		token, _, err := svc.tokens.Issue(User{ID: "ghost", Email: "ghost@example.com", Role: RoleAdmin})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("role is read from storage", func(t *testing.T) {
		t.Parallel()

		svc, store := newAuthHarness(t)
		stored := store.addUser("u-1", RoleAdmin)
		token, _, err := svc.tokens.Issue(User{ID: stored.ID, Email: stored.Email, Role: RoleEmployee})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		user, err := svc.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if user.Role != RoleAdmin {
			t.Fatalf("expected stored role ADMIN, got %s", user.Role)
		}
	})
}

func TestAuthService_CurrentUser(t *testing.T) {
	t.Parallel()

	svc, store := newAuthHarness(t)
	store.addUser("u-1", RoleManager)

	user, err := svc.CurrentUser(context.Background(), Principal{UserID: "u-1", Role: RoleManager})
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.CurrentUser(context.Background(), Principal{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for anonymous principal, got %v", err)
	}
	if _, err := svc.CurrentUser(context.Background(), Principal{UserID: "gone"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for missing user, got %v", err)
	}
}
