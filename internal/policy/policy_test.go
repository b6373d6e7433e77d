package policy

import (
	"net/http"
	"testing"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

func TestIsSafeMethod(t *testing.T) {
	safe := []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	unsafe := []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

	for _, m := range safe {
		if !IsSafeMethod(m) {
			t.Errorf("expected %s to be safe", m)
		}
	}
	for _, m := range unsafe {
		if IsSafeMethod(m) {
			t.Errorf("expected %s to be unsafe", m)
		}
	}
}

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		safe  bool
		want  bool
	}{
		{
			name:  "anonymous safe",
			actor: Anonymous(),
			safe:  true,
			want:  true,
		},
		{
			name:  "anonymous unsafe",
			actor: Anonymous(),
			safe:  false,
			want:  false,
		},
		{
			name:  "user unsafe",
			actor: Actor{ID: 1, Role: domain.RoleUser, Authenticated: true},
			safe:  false,
			want:  false,
		},
		{
			name:  "moderator unsafe",
			actor: Actor{ID: 1, Role: domain.RoleModerator, Authenticated: true},
			safe:  false,
			want:  false,
		},
		{
			name:  "admin unsafe",
			actor: Actor{ID: 1, Role: domain.RoleAdmin, Authenticated: true},
			safe:  false,
			want:  true,
		},
		{
			name:  "superuser with user role unsafe",
			actor: Actor{ID: 1, Role: domain.RoleUser, IsSuperuser: true, Authenticated: true},
			safe:  false,
			want:  true,
		},
		{
			name: "unauthenticated actor claiming admin role",
			// A forged actor without the authenticated bit never passes.
			actor: Actor{ID: 1, Role: domain.RoleAdmin, Authenticated: false},
			safe:  false,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.actor, tt.safe); got != tt.want {
				t.Errorf("CanAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessObject(t *testing.T) {
	const ownerID = int64(7)

	tests := []struct {
		name  string
		actor Actor
		safe  bool
		owner int64
		want  bool
	}{
		{
			name:  "anonymous safe",
			actor: Anonymous(),
			safe:  true,
			owner: ownerID,
			want:  true,
		},
		{
			name:  "anonymous unsafe",
			actor: Anonymous(),
			safe:  false,
			owner: ownerID,
			want:  false,
		},
		{
			name:  "owner unsafe",
			actor: Actor{ID: ownerID, Role: domain.RoleUser, Authenticated: true},
			safe:  false,
			owner: ownerID,
			want:  true,
		},
		{
			name:  "non-owner user unsafe",
			actor: Actor{ID: 99, Role: domain.RoleUser, Authenticated: true},
			safe:  false,
			owner: ownerID,
			want:  false,
		},
		{
			name:  "moderator on someone else's object",
			actor: Actor{ID: 99, Role: domain.RoleModerator, Authenticated: true},
			safe:  false,
			owner: ownerID,
			want:  true,
		},
		{
			name:  "admin on someone else's object",
			actor: Actor{ID: 99, Role: domain.RoleAdmin, Authenticated: true},
			safe:  false,
			owner: ownerID,
			want:  true,
		},
		{
			name:  "superuser on someone else's object",
			actor: Actor{ID: 99, Role: domain.RoleUser, IsSuperuser: true, Authenticated: true},
			safe:  false,
			owner: ownerID,
			want:  true,
		},
		{
			// The anonymous actor has ID 0; an object with owner 0 must
			// not make it an owner.
			name:  "anonymous actor with zero owner ID",
			actor: Anonymous(),
			safe:  false,
			owner: 0,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessObject(tt.actor, tt.safe, tt.owner); got != tt.want {
				t.Errorf("CanAccessObject() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromUser(t *testing.T) {
	u := &domain.User{
		ID:       42,
		Username: "alice",
		Role:     domain.RoleModerator,
	}

	a := FromUser(u)

	if !a.Authenticated {
		t.Error("expected actor to be authenticated")
	}
	if a.ID != u.ID || a.Username != u.Username || a.Role != u.Role {
		t.Errorf("actor does not mirror user: %+v", a)
	}
}
