package rbac

import (
	"testing"

	"github.com/devchat/devchat/internal/types"
	"github.com/stretchr/testify/assert"
)

// userRole mirrors the seeded "user" role: every own-scope grant plus
// public read on every entity.
func userRole() types.Role {
	role := types.Role{Name: "user"}
	for _, entity := range []string{"user", "channel", "message"} {
		for _, action := range []string{"create", "read", "update", "delete"} {
			role.Permissions = append(role.Permissions, types.Permission{
				Entity: entity, Action: action, Scope: "own",
			})
		}
		role.Permissions = append(role.Permissions, types.Permission{
			Entity: entity, Action: "read", Scope: "public",
		})
	}
	return role
}

// adminRole mirrors the seeded "admin" role: every any-scope grant.
func adminRole() types.Role {
	role := types.Role{Name: "admin"}
	for _, entity := range []string{"user", "channel", "message"} {
		for _, action := range []string{"create", "read", "update", "delete"} {
			role.Permissions = append(role.Permissions, types.Permission{
				Entity: entity, Action: action, Scope: "any",
			})
		}
	}
	return role
}

func TestEvaluatorAllowed(t *testing.T) {
	tcases := []struct {
		name     string
		user     types.User
		entity   Entity
		action   Action
		scope    Scope
		expected bool
	}{
		{
			name:     "user role holds own grant",
			user:     types.User{Roles: []types.Role{userRole()}},
			entity:   EntityChannel,
			action:   ActionUpdate,
			scope:    ScopeOwn,
			expected: true,
		},
		{
			name:     "user role holds public read",
			user:     types.User{Roles: []types.Role{userRole()}},
			entity:   EntityChannel,
			action:   ActionRead,
			scope:    ScopePublic,
			expected: true,
		},
		{
			name:     "own grant does not satisfy any",
			user:     types.User{Roles: []types.Role{userRole()}},
			entity:   EntityChannel,
			action:   ActionRead,
			scope:    ScopeAny,
			expected: false,
		},
		{
			name:     "any grant does not satisfy own",
			user:     types.User{Roles: []types.Role{adminRole()}},
			entity:   EntityChannel,
			action:   ActionDelete,
			scope:    ScopeOwn,
			expected: false,
		},
		{
			name:     "admin role holds any grant",
			user:     types.User{Roles: []types.Role{adminRole()}},
			entity:   EntityMessage,
			action:   ActionDelete,
			scope:    ScopeAny,
			expected: true,
		},
		{
			name:     "no roles denies everything",
			user:     types.User{},
			entity:   EntityChannel,
			action:   ActionRead,
			scope:    ScopePublic,
			expected: false,
		},
		{
			name:     "grants accumulate across roles",
			user:     types.User{Roles: []types.Role{userRole(), adminRole()}},
			entity:   EntityChannel,
			action:   ActionDelete,
			scope:    ScopeAny,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			eval := NewEvaluator(tc.user)
			assert.Equal(t, tc.expected, eval.Allowed(tc.entity, tc.action, tc.scope))
		})
	}
}

func TestRequiredScope(t *testing.T) {
	const (
		owner    = 1
		member   = 2
		outsider = 3
	)

	private := ChannelFacts{OwnerId: owner, Private: true, MemberIds: []int{member}}
	public := ChannelFacts{OwnerId: owner, Private: false}

	tcases := []struct {
		name     string
		facts    ChannelFacts
		userId   int
		action   Action
		expected Scope
	}{
		{"owner reads at own", private, owner, ActionRead, ScopeOwn},
		{"owner updates at own", public, owner, ActionUpdate, ScopeOwn},
		{"public read needs public", public, outsider, ActionRead, ScopePublic},
		{"public update by non-owner needs any", public, outsider, ActionUpdate, ScopeAny},
		{"public delete by non-owner needs any", public, outsider, ActionDelete, ScopeAny},
		{"member reads private at own", private, member, ActionRead, ScopeOwn},
		{"member update still needs any", private, member, ActionUpdate, ScopeAny},
		{"outsider read needs any", private, outsider, ActionRead, ScopeAny},
		{"outsider delete needs any", private, outsider, ActionDelete, ScopeAny},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RequiredScope(tc.facts, tc.userId, tc.action))
		})
	}
}

func TestCanPerform(t *testing.T) {
	const (
		owner    = 1
		member   = 2
		outsider = 3
	)

	private := ChannelFacts{OwnerId: owner, Private: true, MemberIds: []int{member}}
	public := ChannelFacts{OwnerId: owner, Private: false}

	regular := NewEvaluator(types.User{Roles: []types.Role{userRole()}})
	admin := NewEvaluator(types.User{Roles: []types.Role{adminRole()}})

	tcases := []struct {
		name     string
		eval     *Evaluator
		facts    ChannelFacts
		userId   int
		action   Action
		expected bool
	}{
		{"any user reads a public channel", regular, public, outsider, ActionRead, true},
		{"owner reads own private channel", regular, private, owner, ActionRead, true},
		{"member reads private channel", regular, private, member, ActionRead, true},
		{"outsider cannot read private channel", regular, private, outsider, ActionRead, false},
		{"outsider cannot delete private channel", regular, private, outsider, ActionDelete, false},
		{"admin override reads private channel", admin, private, outsider, ActionRead, true},
		{"owner updates own channel", regular, public, owner, ActionUpdate, true},
		{"non-owner cannot update public channel", regular, public, outsider, ActionUpdate, false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanPerform(tc.eval, tc.facts, tc.userId, tc.action))
		})
	}
}

func TestCanPerformWithOverride(t *testing.T) {
	const (
		owner    = 1
		outsider = 3
	)

	private := ChannelFacts{OwnerId: owner, Private: true}

	regular := NewEvaluator(types.User{Roles: []types.Role{userRole()}})
	admin := NewEvaluator(types.User{Roles: []types.Role{adminRole()}})

	// admin owning a channel has no delete:own grant, the any probe
	// must pick it up
	assert.True(t, CanPerformWithOverride(admin, private, owner, ActionDelete))
	assert.True(t, CanPerformWithOverride(regular, private, owner, ActionDelete))
	assert.True(t, CanPerformWithOverride(admin, private, outsider, ActionDelete))
	assert.False(t, CanPerformWithOverride(regular, private, outsider, ActionDelete))
}

func TestCanPost(t *testing.T) {
	const (
		owner    = 1
		member   = 2
		outsider = 3
	)

	private := ChannelFacts{OwnerId: owner, Private: true, MemberIds: []int{member}}
	public := ChannelFacts{OwnerId: owner, Private: false}

	assert.True(t, CanPost(public, outsider), "anyone posts to a public channel")
	assert.True(t, CanPost(private, owner), "owner posts to own private channel")
	assert.True(t, CanPost(private, member), "member posts to private channel")
	assert.False(t, CanPost(private, outsider), "outsider cannot post to private channel")
}
