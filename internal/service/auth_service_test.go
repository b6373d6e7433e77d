package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/lock"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[string]*domain.User // keyed by username
	nextID    int64
	createErr error
	getErr    error
	updateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[string]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Username]; exists {
		return domain.ErrDuplicateIdentity
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateIdentity
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, exists := m.users[username]; exists {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.users[user.Username]; !exists {
		return domain.ErrUserNotFound
	}
	m.users[user.Username] = user
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	for name, u := range m.users {
		if u.ID == id {
			delete(m.users, name)
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	result := &repository.ListResult[domain.User]{
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}
	for _, u := range m.users {
		result.Items = append(result.Items, u)
	}
	result.Total = int64(len(result.Items))
	return result, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, exists := m.users[username]
	return exists, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// MockTokenManager mints predictable tokens.
type MockTokenManager struct {
	generateErr error
}

func (m *MockTokenManager) Generate(userID int64) (string, error) {
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return fmt.Sprintf("token-for-%d", userID), nil
}

func (m *MockTokenManager) Validate(token string) (*auth.Claims, error) {
	return nil, domain.ErrInvalidToken
}

var _ auth.TokenManager = (*MockTokenManager)(nil)

// MockMailer records deliveries.
type MockMailer struct {
	sent    []string // codes, in send order
	lastTo  string
	sendErr error
}

func (m *MockMailer) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, code)
	m.lastTo = to
	return nil
}

// =============================================================================
// Tests
// =============================================================================

type authServiceFixture struct {
	svc      *AuthService
	users    *MockUserRepository
	codeRepo *MockCodeRepository
	mail     *MockMailer
}

func newAuthServiceFixture() *authServiceFixture {
	users := NewMockUserRepository()
	codeRepo := NewMockCodeRepository()
	mail := &MockMailer{}

	cfg := testAuthConfig()
	cfg.ForbiddenUsernames = []string{"me"}

	codes := NewCodeService(codeRepo, lock.NewMemoryLocker(), cfg, zerolog.Nop())
	svc := NewAuthService(users, codes, &MockTokenManager{}, mail, cfg, zerolog.Nop())

	return &authServiceFixture{svc: svc, users: users, codeRepo: codeRepo, mail: mail}
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name    string
		input   SignUpInput
		setup   func(*authServiceFixture)
		wantErr error
	}{
		{
			name:  "new user",
			input: SignUpInput{Username: "alice", Email: "alice@example.com"},
		},
		{
			name:  "reissue for exact existing pair",
			input: SignUpInput{Username: "alice", Email: "alice@example.com"},
			setup: func(f *authServiceFixture) {
				f.users.users["alice"] = &domain.User{
					ID: 1, Username: "alice", Email: "alice@example.com",
				}
			},
		},
		{
			name:  "username taken with different email",
			input: SignUpInput{Username: "alice", Email: "other@example.com"},
			setup: func(f *authServiceFixture) {
				f.users.users["alice"] = &domain.User{
					ID: 1, Username: "alice", Email: "alice@example.com",
				}
			},
			wantErr: domain.ErrDuplicateIdentity,
		},
		{
			name:  "email taken by another username",
			input: SignUpInput{Username: "bob", Email: "alice@example.com"},
			setup: func(f *authServiceFixture) {
				f.users.users["alice"] = &domain.User{
					ID: 1, Username: "alice", Email: "alice@example.com",
				}
			},
			wantErr: domain.ErrDuplicateIdentity,
		},
		{
			name:    "forbidden username",
			input:   SignUpInput{Username: "me", Email: "me@example.com"},
			wantErr: domain.ErrForbiddenUsername,
		},
		{
			name:    "forbidden username is case-insensitive",
			input:   SignUpInput{Username: "ME", Email: "me@example.com"},
			wantErr: domain.ErrForbiddenUsername,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthServiceFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			output, err := f.svc.SignUp(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if output.Username != tt.input.Username || output.Email != tt.input.Email {
				t.Errorf("output does not echo identity: %+v", output)
			}

			user, err := f.users.GetByUsername(context.Background(), tt.input.Username)
			if err != nil {
				t.Fatalf("expected user to exist: %v", err)
			}
			if _, ok := f.codeRepo.codes[user.ID]; !ok {
				t.Error("expected a confirmation code to be stored")
			}
			if len(f.mail.sent) != 1 {
				t.Fatalf("expected 1 delivery, got %d", len(f.mail.sent))
			}
			if f.mail.lastTo != tt.input.Email {
				t.Errorf("code sent to %s, want %s", f.mail.lastTo, tt.input.Email)
			}
		})
	}
}

func TestAuthService_SignUp_NewUserIsInactive(t *testing.T) {
	f := newAuthServiceFixture()

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Username: "alice", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user := f.users.users["alice"]
	if user.Active {
		t.Error("new user must be inactive until first token exchange")
	}
	if user.Role != domain.RoleUser {
		t.Errorf("new user role = %s, want %s", user.Role, domain.RoleUser)
	}
}

func TestAuthService_SignUp_MailFailureIsNotFatal(t *testing.T) {
	f := newAuthServiceFixture()
	f.mail.sendErr = errors.New("smtp: connection refused")

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Username: "alice", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("delivery failure must not fail sign-up: %v", err)
	}

	// The code is on file; the user can request a reissue after the cooldown.
	user := f.users.users["alice"]
	if _, ok := f.codeRepo.codes[user.ID]; !ok {
		t.Error("expected the code to be stored despite delivery failure")
	}
}

func TestAuthService_TokenExchange(t *testing.T) {
	f := newAuthServiceFixture()

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Username: "alice", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code := f.mail.sent[0]

	tests := []struct {
		name    string
		input   TokenExchangeInput
		wantErr error
	}{
		{
			name:  "valid code",
			input: TokenExchangeInput{Username: "alice", ConfirmationCode: code},
		},
		{
			name:    "wrong code",
			input:   TokenExchangeInput{Username: "alice", ConfirmationCode: "WRONG123"},
			wantErr: domain.ErrInvalidCode,
		},
		{
			name:    "unknown user",
			input:   TokenExchangeInput{Username: "nobody", ConfirmationCode: code},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := f.svc.TokenExchange(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func TestAuthService_TokenExchange_ActivatesUser(t *testing.T) {
	f := newAuthServiceFixture()

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Username: "alice", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	code := f.mail.sent[0]

	if f.users.users["alice"].Active {
		t.Fatal("user should start inactive")
	}

	// The code is not consumed, so the same code exchanges twice.
	for i := 0; i < 2; i++ {
		_, err = f.svc.TokenExchange(context.Background(), TokenExchangeInput{
			Username: "alice", ConfirmationCode: code,
		})
		if err != nil {
			t.Fatalf("exchange %d failed: %v", i+1, err)
		}
		if !f.users.users["alice"].Active {
			t.Fatalf("user should be active after exchange %d", i+1)
		}
	}
}
