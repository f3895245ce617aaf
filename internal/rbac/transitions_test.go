package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionToRole(t *testing.T) {
	g := DefaultTransitions()

	assert.True(t, g.CanTransitionToRole(RoleUser, RoleMentor))
	assert.True(t, g.CanTransitionToRole(RoleUser, RoleStudent))
	assert.False(t, g.CanTransitionToRole(RoleUser, RoleAdmin))
	assert.False(t, g.CanTransitionToRole(RoleUser, RoleUser))
}

// Only the base role has outgoing edges. An approved mentor can never apply for a
// further role until the graph is extended.
func TestTerminalRolesHaveNoTransitions(t *testing.T) {
	g := DefaultTransitions()

	for _, from := range []Role{RoleAdmin, RoleMentor, RoleStudent, RoleWriter, RoleSeller} {
		assert.Empty(t, g.PossibleTransitions(from), "role %s", from)
		for _, to := range []Role{RoleAdmin, RoleMentor, RoleStudent, RoleWriter, RoleSeller, RoleUser} {
			assert.False(t, g.CanTransitionToRole(from, to), "%s -> %s", from, to)
		}
	}
}

func TestPossibleTransitions_ReturnsCopy(t *testing.T) {
	g := DefaultTransitions()

	got := g.PossibleTransitions(RoleUser)
	require.Len(t, got, 4)
	got[0] = RoleAdmin

	assert.False(t, g.CanTransitionToRole(RoleUser, RoleAdmin))
}

func TestTransitionsAreDataDriven(t *testing.T) {
	g := DefaultTransitions()
	g[RoleStudent] = []Role{RoleMentor}

	h, err := NewHierarchy(DefaultRoles(), g)
	require.NoError(t, err)

	assert.True(t, h.CanTransitionToRole(RoleStudent, RoleMentor))
	assert.Equal(t, []Role{RoleMentor}, h.PossibleTransitions(RoleStudent))

	// the hierarchy keeps its own copy of the graph
	g[RoleWriter] = []Role{RoleSeller}
	assert.False(t, h.CanTransitionToRole(RoleWriter, RoleSeller))
}
