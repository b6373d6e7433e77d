package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

func newTestIdentityService(repo *MockUserRepository) *IdentityService {
	cfg := testAuthConfig()
	cfg.ForbiddenUsernames = []string{"me"}
	return NewIdentityService(repo, cfg, zerolog.Nop())
}

func TestIdentityService_CreateUser(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateUserInput
		setup    func(*MockUserRepository)
		wantErr  error
		wantRole domain.Role
	}{
		{
			name:     "default role",
			input:    CreateUserInput{Username: "alice", Email: "alice@example.com"},
			wantRole: domain.RoleUser,
		},
		{
			name:     "explicit moderator",
			input:    CreateUserInput{Username: "mod", Email: "mod@example.com", Role: domain.RoleModerator},
			wantRole: domain.RoleModerator,
		},
		{
			name:    "unknown role",
			input:   CreateUserInput{Username: "x", Email: "x@example.com", Role: "owner"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "forbidden username",
			input:   CreateUserInput{Username: "me", Email: "me@example.com"},
			wantErr: domain.ErrForbiddenUsername,
		},
		{
			name:  "duplicate username",
			input: CreateUserInput{Username: "alice", Email: "new@example.com"},
			setup: func(m *MockUserRepository) {
				m.users["alice"] = &domain.User{ID: 1, Username: "alice", Email: "alice@example.com"}
			},
			wantErr: domain.ErrDuplicateIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setup != nil {
				tt.setup(repo)
			}
			svc := newTestIdentityService(repo)

			user, err := svc.CreateUser(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if user.Role != tt.wantRole {
				t.Errorf("role = %s, want %s", user.Role, tt.wantRole)
			}
			// Admin-created accounts skip the confirmation flow.
			if !user.Active {
				t.Error("admin-created user should be active immediately")
			}
		})
	}
}

func TestIdentityService_UpdateUser(t *testing.T) {
	newEmail := "new@example.com"
	modRole := domain.RoleModerator
	badRole := domain.Role("owner")

	tests := []struct {
		name    string
		input   UpdateUserInput
		wantErr error
		check   func(*testing.T, *domain.User)
	}{
		{
			name:  "change email only",
			input: UpdateUserInput{Username: "alice", Email: &newEmail},
			check: func(t *testing.T, u *domain.User) {
				if u.Email != newEmail {
					t.Errorf("email = %s, want %s", u.Email, newEmail)
				}
				if u.Role != domain.RoleUser {
					t.Errorf("role changed unexpectedly to %s", u.Role)
				}
			},
		},
		{
			name:  "promote to moderator",
			input: UpdateUserInput{Username: "alice", Role: &modRole},
			check: func(t *testing.T, u *domain.User) {
				if u.Role != domain.RoleModerator {
					t.Errorf("role = %s, want moderator", u.Role)
				}
			},
		},
		{
			name:    "unknown role",
			input:   UpdateUserInput{Username: "alice", Role: &badRole},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown user",
			input:   UpdateUserInput{Username: "nobody", Email: &newEmail},
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			repo.users["alice"] = &domain.User{
				ID: 1, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser,
			}
			svc := newTestIdentityService(repo)

			user, err := svc.UpdateUser(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, user)
			}
		})
	}
}

func TestIdentityService_UpdateProfile(t *testing.T) {
	repo := NewMockUserRepository()
	repo.users["alice"] = &domain.User{
		ID: 1, Username: "alice", Email: "alice@example.com",
		Role: domain.RoleUser, Bio: "old bio",
	}
	svc := newTestIdentityService(repo)

	newBio := "hello"
	user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
		UserID: 1,
		Bio:    &newBio,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Bio != newBio {
		t.Errorf("bio = %q, want %q", user.Bio, newBio)
	}
	// UpdateProfileInput has no role field: self-service updates cannot
	// change the role, whatever the request body carried.
	if user.Role != domain.RoleUser {
		t.Errorf("role = %s, want user", user.Role)
	}
	if user.Username != "alice" {
		t.Errorf("username = %s, want alice", user.Username)
	}
}

func TestIdentityService_DeleteUser(t *testing.T) {
	repo := NewMockUserRepository()
	repo.users["alice"] = &domain.User{ID: 1, Username: "alice"}
	svc := newTestIdentityService(repo)

	if err := svc.DeleteUser(context.Background(), "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, exists := repo.users["alice"]; exists {
		t.Error("expected user to be removed")
	}

	if err := svc.DeleteUser(context.Background(), "alice"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
