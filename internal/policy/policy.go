// Package policy is the access policy engine. It decides, per request,
// whether an actor may perform an action on a resource, given the actor's
// role and (for object-level checks) ownership.
//
// Every decision is a pure function of (actor, action safety, owner) —
// no I/O, no side effects. The coarse check gates collection-level and
// admin-only resources and must run before any resource is fetched; the
// fine-grained check runs after the resource is loaded, so a missing
// resource is a not-found, independent of authorization.
package policy

import (
	"net/http"

	"github.com/prn-tf/aurelius-catalogue/internal/domain"
)

// Actor is the identity making a request: either an authenticated user or
// the anonymous actor.
type Actor struct {
	// ID is the user ID; zero for the anonymous actor.
	ID int64

	// Username is the user's username; empty for the anonymous actor.
	Username string

	// Role is the user's role at request time.
	Role domain.Role

	// IsSuperuser mirrors the user's superuser flag.
	IsSuperuser bool

	// Authenticated is false for the anonymous actor.
	Authenticated bool
}

// Anonymous returns the unauthenticated actor.
func Anonymous() Actor {
	return Actor{}
}

// FromUser builds an actor from a user record. The record is resolved on
// every request, so role changes take effect immediately — the bearer token
// carries no role snapshot.
func FromUser(u *domain.User) Actor {
	return Actor{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		IsSuperuser:   u.IsSuperuser,
		Authenticated: true,
	}
}

// IsSafeMethod reports whether the HTTP method is read-only.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Predicates the exported checks are composed from. Each inspects exactly
// one facet of the capability triple.

func isAdmin(a Actor) bool {
	return a.Authenticated && (a.Role == domain.RoleAdmin || a.IsSuperuser)
}

func isModerator(a Actor) bool {
	return a.Authenticated && a.Role == domain.RoleModerator
}

func isOwner(a Actor, ownerID int64) bool {
	return a.Authenticated && a.ID == ownerID
}

// CanAccess is the coarse, collection-level check used for Category, Genre,
// Title and user-administration resources. Safe actions always pass; unsafe
// actions require admin-level access.
func CanAccess(a Actor, safe bool) bool {
	return safe || isAdmin(a)
}

// CanAccessObject is the fine-grained, object-level check used for Review
// and Comment. Safe actions always pass; unsafe actions pass for admins,
// moderators, and the resource's author.
func CanAccessObject(a Actor, safe bool, ownerID int64) bool {
	return safe || isAdmin(a) || isModerator(a) || isOwner(a, ownerID)
}
