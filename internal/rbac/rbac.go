// Package rbac evaluates role-based permission grants. A grant is a
// (entity, action, scope) triple attached to a role; a user holds the
// union of the grants of their roles. Scopes are not hierarchical here:
// holding "any" does not satisfy an "own" check and vice versa. Callers
// that want an admin override probe "any" explicitly.
package rbac

import (
	"github.com/devchat/devchat/internal/types"
)

type Entity string

const (
	EntityUser    Entity = "user"
	EntityChannel Entity = "channel"
	EntityMessage Entity = "message"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Scope string

const (
	ScopeOwn    Scope = "own"
	ScopeAny    Scope = "any"
	ScopePublic Scope = "public"
)

type grant struct {
	entity Entity
	action Action
	scope  Scope
}

// Evaluator answers permission checks against a user's role snapshot.
// The snapshot is loaded once per request and read-only afterwards.
type Evaluator struct {
	grants map[grant]struct{}
}

// NewEvaluator flattens the roles of a loaded user into a grant set.
func NewEvaluator(user types.User) *Evaluator {
	e := &Evaluator{grants: make(map[grant]struct{})}
	for _, role := range user.Roles {
		for _, p := range role.Permissions {
			e.grants[grant{
				entity: Entity(p.Entity),
				action: Action(p.Action),
				scope:  Scope(p.Scope),
			}] = struct{}{}
		}
	}
	return e
}

// Allowed reports whether any of the user's roles holds the exact
// (entity, action, scope) triple.
func (e *Evaluator) Allowed(entity Entity, action Action, scope Scope) bool {
	_, ok := e.grants[grant{entity: entity, action: action, scope: scope}]
	return ok
}
