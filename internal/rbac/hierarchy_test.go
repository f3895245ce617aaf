package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/campus-access/internal/apperror"
)

func TestDefaultRoles_NoCycles(t *testing.T) {
	defs := DefaultRoles()
	for role := range defs {
		assert.True(t, ValidateRoleInheritance(defs, role, nil), "role %s", role)
	}

	_, err := NewHierarchy(defs, DefaultTransitions())
	require.NoError(t, err)
}

func TestAllRolePermissions_SupersetOfDirect(t *testing.T) {
	h := MustDefault()

	for _, role := range h.Roles() {
		def, ok := h.Definition(role)
		require.True(t, ok)

		all := NewPermissionSet(h.AllRolePermissions(role)...)
		for _, p := range def.Permissions {
			assert.True(t, all.Contains(p), "%s missing %s", role, p)
		}
	}
}

func TestAllRolePermissions_IncludesInherited(t *testing.T) {
	h := MustDefault()

	mentor := NewPermissionSet(h.AllRolePermissions(RoleMentor)...)
	assert.True(t, mentor.Contains(Allow(ResourceCourse, ActionCreate)))
	assert.True(t, mentor.Contains(Allow(ResourceArticle, ActionRead)))

	// category:read is declared by both mentor and user.
	count := 0
	for _, p := range h.AllRolePermissions(RoleMentor) {
		if p.Key() == "category:read" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRoleHasPermission(t *testing.T) {
	h := MustDefault()

	tests := []struct {
		name     string
		role     Role
		resource Resource
		action   Action
		expected bool
	}{
		{"user cannot create course", RoleUser, ResourceCourse, ActionCreate, false},
		{"mentor creates course", RoleMentor, ResourceCourse, ActionCreate, true},
		{"mentor inherits article read", RoleMentor, ResourceArticle, ActionRead, true},
		{"writer cannot create product", RoleWriter, ResourceProduct, ActionCreate, false},
		{"seller creates product", RoleSeller, ResourceProduct, ActionCreate, true},
		{"student inherits product read", RoleStudent, ResourceProduct, ActionRead, true},
		{"admin manages roles", RoleAdmin, ResourceRole, ActionUpdate, true},
		{"admin deletes anything", RoleAdmin, ResourceCourse, ActionDelete, true},
		{"unknown role", Role("ghost"), ResourceCourse, ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.RoleHasPermission(tt.role, tt.resource, tt.action))
		})
	}
}

func TestAdminIsFlat(t *testing.T) {
	h := MustDefault()

	assert.Empty(t, h.InheritedRoles(RoleAdmin))
	assert.Empty(t, h.InheritingRoles(RoleAdmin))
}

func TestInheritedAndInheritingRoles(t *testing.T) {
	defs := map[Role]RoleDefinition{
		"base":   {Permissions: []Permission{Allow(ResourceUser, ActionRead)}},
		"middle": {Inherits: []Role{"base"}},
		"top":    {Inherits: []Role{"middle", "base"}},
	}
	h, err := NewHierarchy(defs, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []Role{"middle", "base"}, h.InheritedRoles("top"))
	assert.Empty(t, h.InheritedRoles("base"))

	// one hop only: top inherits base directly, middle does too
	assert.Equal(t, []Role{"middle", "top"}, h.InheritingRoles("base"))
	assert.Equal(t, []Role{"top"}, h.InheritingRoles("middle"))

	assert.True(t, h.RoleHasPermission("top", ResourceUser, ActionRead))
}

func TestDefaultInheritingRoles(t *testing.T) {
	h := MustDefault()
	assert.Equal(t, []Role{RoleMentor, RoleSeller, RoleStudent, RoleWriter}, h.InheritingRoles(RoleUser))
}

func TestNewHierarchy_DetectsCycles(t *testing.T) {
	tests := []struct {
		name string
		defs map[Role]RoleDefinition
	}{
		{
			name: "self inheritance",
			defs: map[Role]RoleDefinition{"a": {Inherits: []Role{"a"}}},
		},
		{
			name: "transitive cycle",
			defs: map[Role]RoleDefinition{
				"a": {Inherits: []Role{"b"}},
				"b": {Inherits: []Role{"c"}},
				"c": {Inherits: []Role{"a"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHierarchy(tt.defs, nil)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, ErrCircularInheritance)
			assert.ErrorIs(t, err, apperror.ErrConfiguration)
		})
	}
}

func TestValidateRoleInheritance_DiamondIsNotACycle(t *testing.T) {
	defs := map[Role]RoleDefinition{
		"root":  {},
		"left":  {Inherits: []Role{"root"}},
		"right": {Inherits: []Role{"root"}},
		"leaf":  {Inherits: []Role{"left", "right"}},
	}

	assert.True(t, ValidateRoleInheritance(defs, "leaf", nil))
	_, err := NewHierarchy(defs, nil)
	assert.NoError(t, err)
}

func TestNewHierarchy_UnknownReferences(t *testing.T) {
	_, err := NewHierarchy(map[Role]RoleDefinition{
		"a": {Inherits: []Role{"missing"}},
	}, nil)
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = NewHierarchy(map[Role]RoleDefinition{"a": {}}, TransitionGraph{"a": {"b"}})
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.True(t, errors.Is(err, apperror.ErrConfiguration))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("mentor")
	assert.True(t, ok)
	assert.Equal(t, RoleMentor, r)

	_, ok = ParseRole("MENTOR")
	assert.False(t, ok)
}
