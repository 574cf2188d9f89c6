package booking

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

type Transition struct {
	From Status
	To   Status
}

// Actor is an identity resolved against one booking. Role is RoleNone when the
// identity holds neither participant slot.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsParticipant() bool {
	return a.Role != RoleNone
}

var defaultTransitions = map[Transition][]Role{
	{From: StatusPending, To: StatusAccepted}:   {RoleProvider},
	{From: StatusPending, To: StatusDeclined}:   {RoleProvider},
	{From: StatusPending, To: StatusCancelled}:  {RoleRequester, RoleProvider},
	{From: StatusAccepted, To: StatusCancelled}: {RoleRequester, RoleProvider},
	{From: StatusAccepted, To: StatusCompleted}: {RoleProvider},
}

// TransitionGuard decides whether an actor may move a booking between two
// statuses. It holds no state beyond its table and is safe to share.
type TransitionGuard struct {
	table map[Transition][]Role
}

func NewTransitionGuard() TransitionGuard {
	return TransitionGuard{table: defaultTransitions}
}

// Decide checks, in order: the target is a known status, the actor is a
// participant, the actor's role may ever reach the target, and finally that
// the pair is in the table. The acting identity therefore decides whether a
// caller sees Forbidden or InvalidTransition.
func (g TransitionGuard) Decide(current Status, actor Actor, target Status) (Status, error) {
	if !target.IsValid() {
		return current, ErrInvalidStatus
	}
	if !actor.IsParticipant() {
		return current, ErrNotParticipant
	}
	if !slices.Contains(g.rolesReaching(target), actor.Role) {
		return current, ErrRoleNotPermitted
	}
	roles, ok := g.table[Transition{From: current, To: target}]
	if !ok || !slices.Contains(roles, actor.Role) {
		return current, ErrInvalidTransition
	}
	return target, nil
}

func (g TransitionGuard) Allows(current Status, role Role, target Status) bool {
	roles, ok := g.table[Transition{From: current, To: target}]
	return ok && slices.Contains(roles, role)
}

// Transitions returns every allowed (from, to) pair in a stable order.
func (g TransitionGuard) Transitions() []Transition {
	out := make([]Transition, 0, len(g.table))
	for t := range g.table {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Transition) int {
		if a.From != b.From {
			return cmp.Compare(a.From, b.From)
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

func (g TransitionGuard) rolesReaching(target Status) []Role {
	var roles []Role
	for t, rs := range g.table {
		if t.To != target {
			continue
		}
		for _, r := range rs {
			if !slices.Contains(roles, r) {
				roles = append(roles, r)
			}
		}
	}
	return roles
}
