package rbac

import (
	"errors"
	"fmt"
	"sort"

	"github.com/guttosm/campus-access/internal/apperror"
)

var (
	// ErrCircularInheritance is returned when a role inherits itself directly or transitively.
	ErrCircularInheritance = fmt.Errorf("%w: circular role inheritance", apperror.ErrConfiguration)
	// ErrUnknownRole is returned when the role table references an undefined role.
	ErrUnknownRole = fmt.Errorf("%w: unknown role", apperror.ErrConfiguration)
)

// Role is a named bundle of permissions.
type Role string

// Known roles.
const (
	RoleAdmin   Role = "admin"
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
	RoleWriter  Role = "writer"
	RoleSeller  Role = "seller"
	RoleUser    Role = "user"
)

// DefaultRole is assigned to newly registered accounts.
const DefaultRole = RoleUser

// ParseRole converts a string into a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleMentor, RoleStudent, RoleWriter, RoleSeller, RoleUser:
		return r, true
	}
	return "", false
}

// RoleDefinition holds a role's direct permissions and the roles it inherits from.
type RoleDefinition struct {
	Description string
	Permissions []Permission
	Inherits    []Role
}

// Hierarchy resolves permissions across the role table. It is immutable after construction
// and safe for concurrent use.
type Hierarchy struct {
	defs        map[Role]RoleDefinition
	resolved    map[Role][]Permission
	inherited   map[Role][]Role
	transitions TransitionGraph
}

// NewHierarchy validates the role table and transition graph and precomputes the
// resolved permission set of every role.
func NewHierarchy(defs map[Role]RoleDefinition, transitions TransitionGraph) (*Hierarchy, error) {
	var errs []error
	for _, role := range sortedRoles(defs) {
		for _, parent := range defs[role].Inherits {
			if _, ok := defs[parent]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s inherits %s", ErrUnknownRole, role, parent))
			}
		}
		if !ValidateRoleInheritance(defs, role, nil) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrCircularInheritance, role))
		}
	}
	for _, from := range sortedTransitionKeys(transitions) {
		if _, ok := defs[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: transition source %s", ErrUnknownRole, from))
		}
		for _, to := range transitions[from] {
			if _, ok := defs[to]; !ok {
				errs = append(errs, fmt.Errorf("%w: transition %s -> %s", ErrUnknownRole, from, to))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	h := &Hierarchy{
		defs:        defs,
		resolved:    make(map[Role][]Permission, len(defs)),
		inherited:   make(map[Role][]Role, len(defs)),
		transitions: transitions.clone(),
	}
	for role := range defs {
		set := NewPermissionSet()
		h.collectPermissions(role, set)
		h.resolved[role] = set.Slice()
		h.inherited[role] = h.collectInherited(role, make(map[Role]struct{}))
	}
	return h, nil
}

// MustDefault builds the shipped hierarchy and panics if it is invalid.
func MustDefault() *Hierarchy {
	h, err := NewHierarchy(DefaultRoles(), DefaultTransitions())
	if err != nil {
		panic(err)
	}
	return h
}

// ValidateRoleInheritance walks the inheritance graph depth-first from role and reports
// false as soon as a role is revisited along the current path.
func ValidateRoleInheritance(defs map[Role]RoleDefinition, role Role, visited map[Role]bool) bool {
	if visited == nil {
		visited = make(map[Role]bool)
	}
	if visited[role] {
		return false
	}
	def, ok := defs[role]
	if !ok {
		return true
	}

	visited[role] = true
	defer delete(visited, role)

	for _, parent := range def.Inherits {
		if !ValidateRoleInheritance(defs, parent, visited) {
			return false
		}
	}
	return true
}

// IsKnown reports whether the role is defined.
func (h *Hierarchy) IsKnown(role Role) bool {
	_, ok := h.defs[role]
	return ok
}

// Roles returns every defined role in lexical order.
func (h *Hierarchy) Roles() []Role {
	return sortedRoles(h.defs)
}

// Definition returns the raw definition of a role.
func (h *Hierarchy) Definition(role Role) (RoleDefinition, bool) {
	def, ok := h.defs[role]
	return def, ok
}

// AllRolePermissions returns the role's direct and inherited permissions, de-duplicated.
func (h *Hierarchy) AllRolePermissions(role Role) []Permission {
	perms := h.resolved[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// RoleHasPermission reports whether the role, directly or through inheritance,
// holds the action on the resource.
func (h *Hierarchy) RoleHasPermission(role Role, resource Resource, action Action) bool {
	def, ok := h.defs[role]
	if !ok {
		return false
	}
	if HasPermission(def.Permissions, resource, action) {
		return true
	}
	for _, parent := range def.Inherits {
		if h.RoleHasPermission(parent, resource, action) {
			return true
		}
	}
	return false
}

// InheritedRoles returns every role transitively inherited by role.
func (h *Hierarchy) InheritedRoles(role Role) []Role {
	roles := h.inherited[role]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// InheritingRoles returns the roles that directly inherit from role. The lookup is one hop.
func (h *Hierarchy) InheritingRoles(role Role) []Role {
	var out []Role
	for _, candidate := range sortedRoles(h.defs) {
		for _, parent := range h.defs[candidate].Inherits {
			if parent == role {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// CanTransitionToRole reports whether a holder of from may apply to become to.
func (h *Hierarchy) CanTransitionToRole(from, to Role) bool {
	return h.transitions.CanTransitionToRole(from, to)
}

// PossibleTransitions returns the roles a holder of role may apply for.
func (h *Hierarchy) PossibleTransitions(role Role) []Role {
	return h.transitions.PossibleTransitions(role)
}

func (h *Hierarchy) collectPermissions(role Role, set *PermissionSet) {
	def := h.defs[role]
	set.Add(def.Permissions...)
	for _, parent := range def.Inherits {
		h.collectPermissions(parent, set)
	}
}

func (h *Hierarchy) collectInherited(role Role, seen map[Role]struct{}) []Role {
	var out []Role
	for _, parent := range h.defs[role].Inherits {
		if _, ok := seen[parent]; ok {
			continue
		}
		seen[parent] = struct{}{}
		out = append(out, parent)
		out = append(out, h.collectInherited(parent, seen)...)
	}
	return out
}

func sortedRoles(defs map[Role]RoleDefinition) []Role {
	roles := make([]Role, 0, len(defs))
	for r := range defs {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}
