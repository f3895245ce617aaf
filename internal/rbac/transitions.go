package rbac

import (
	"slices"
	"sort"
)

// TransitionGraph maps a role to the roles its holder may apply for.
// Edges are one hop; roles without an entry are terminal.
type TransitionGraph map[Role][]Role

// DefaultTransitions returns the shipped graph: only the base user role can apply for
// another role, and every other role is terminal.
func DefaultTransitions() TransitionGraph {
	return TransitionGraph{
		RoleUser: {RoleStudent, RoleWriter, RoleSeller, RoleMentor},
	}
}

// CanTransitionToRole reports whether to is listed for from.
func (g TransitionGraph) CanTransitionToRole(from, to Role) bool {
	return slices.Contains(g[from], to)
}

// PossibleTransitions returns a copy of the adjacency list for role, or an empty slice.
func (g TransitionGraph) PossibleTransitions(role Role) []Role {
	out := make([]Role, len(g[role]))
	copy(out, g[role])
	return out
}

func (g TransitionGraph) clone() TransitionGraph {
	out := make(TransitionGraph, len(g))
	for from, to := range g {
		out[from] = slices.Clone(to)
	}
	return out
}

func sortedTransitionKeys(g TransitionGraph) []Role {
	keys := make([]Role, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
