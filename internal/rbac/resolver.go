package rbac

import "slices"

// ChannelFacts is the minimal channel state the resolver needs: who owns
// it, whether it is private, and the membership roster.
type ChannelFacts struct {
	OwnerId   int
	Private   bool
	MemberIds []int
}

func (f ChannelFacts) IsOwner(userId int) bool {
	return f.OwnerId == userId
}

func (f ChannelFacts) IsMember(userId int) bool {
	return slices.Contains(f.MemberIds, userId)
}

// RequiredScope computes the permission scope a user must hold to perform
// an action on a channel:
//
//  1. the owner acts at "own" scope
//  2. a public channel is readable at "public" scope, but mutations by
//     non-owners always require "any"
//  3. a member of a private channel reads at "own" scope (co-owner for
//     read purposes only)
//  4. everyone else needs the "any" override
func RequiredScope(facts ChannelFacts, userId int, action Action) Scope {
	switch {
	case facts.IsOwner(userId):
		return ScopeOwn
	case !facts.Private:
		if action == ActionRead {
			return ScopePublic
		}
		return ScopeAny
	case facts.IsMember(userId) && action == ActionRead:
		return ScopeOwn
	default:
		return ScopeAny
	}
}

// CanPerform checks the evaluator at exactly the required scope. A denial
// is terminal; there is no silent fallback to "any".
func CanPerform(eval *Evaluator, facts ChannelFacts, userId int, action Action) bool {
	return eval.Allowed(EntityChannel, action, RequiredScope(facts, userId, action))
}

// CanPerformWithOverride tries the required scope first and then probes the
// "any" scope, letting a global admin act on channels they neither own nor
// belong to. Used for update and delete.
func CanPerformWithOverride(eval *Evaluator, facts ChannelFacts, userId int, action Action) bool {
	if CanPerform(eval, facts, userId, action) {
		return true
	}
	return eval.Allowed(EntityChannel, action, ScopeAny)
}

// CanPost reports whether a user may append messages to a channel. The
// gate mirrors read eligibility: the owner, any user on a public channel,
// or a member of a private one. Outsiders are rejected regardless of the
// permission table.
func CanPost(facts ChannelFacts, userId int) bool {
	return facts.IsOwner(userId) || !facts.Private || facts.IsMember(userId)
}
