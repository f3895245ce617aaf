// Package rbac provides the permission model, the role hierarchy and the role transition graph.
//
// All checks in this package are pure predicates: they never return errors and treat
// absent data as "not permitted".
package rbac

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Resource is a protected noun in the system.
type Resource string

// Known resources.
const (
	ResourceUser     Resource = "user"
	ResourceCourse   Resource = "course"
	ResourceArticle  Resource = "article"
	ResourceProduct  Resource = "product"
	ResourceCategory Resource = "category"
	ResourceRole     Resource = "role"
)

// Resources lists every known resource.
var Resources = []Resource{
	ResourceUser, ResourceCourse, ResourceArticle, ResourceProduct, ResourceCategory, ResourceRole,
}

// Action is an operation on a resource.
type Action string

// Known actions. ActionManage implies every other action on the same resource.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Actions lists every known action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}

// Permission grants an action on a resource, optionally constrained by conditions.
type Permission struct {
	Resource   Resource       `json:"resource"`
	Action     Action         `json:"action"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// Requirement is a (resource, action) pair a caller must hold.
type Requirement struct {
	Resource Resource
	Action   Action
}

// Allow builds a permission without conditions.
func Allow(resource Resource, action Action) Permission {
	return Permission{Resource: resource, Action: action}
}

// AllowIf builds a permission constrained by conditions.
func AllowIf(resource Resource, action Action, conditions map[string]any) Permission {
	return Permission{Resource: resource, Action: action, Conditions: conditions}
}

// Key returns the canonical form of the permission. Condition keys are sorted so that
// structurally equal permissions always share a key.
func (p Permission) Key() string {
	base := string(p.Resource) + ":" + string(p.Action)
	if len(p.Conditions) == 0 {
		return base
	}

	keys := make([]string, 0, len(p.Conditions))
	for k := range p.Conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := p.Conditions[k]
		parts = append(parts, fmt.Sprintf("%s=%T:%v", k, v, v))
	}
	return base + "?" + strings.Join(parts, "&")
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return p.Key()
}

// Grants reports whether the permission covers the requested resource and action.
func (p Permission) Grants(resource Resource, action Action) bool {
	return p.Resource == resource && (p.Action == action || p.Action == ActionManage)
}

// HasPermission reports whether any permission grants the action on the resource.
func HasPermission(perms []Permission, resource Resource, action Action) bool {
	for _, p := range perms {
		if p.Grants(resource, action) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every requirement is granted.
func HasAllPermissions(perms []Permission, reqs ...Requirement) bool {
	for _, r := range reqs {
		if !HasPermission(perms, r.Resource, r.Action) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether at least one requirement is granted.
func HasAnyPermission(perms []Permission, reqs ...Requirement) bool {
	for _, r := range reqs {
		if HasPermission(perms, r.Resource, r.Action) {
			return true
		}
	}
	return false
}

// CheckPermissionConditions reports whether ctx satisfies the permission's conditions.
// Every condition key must be present in ctx with a strictly equal value.
// Resource and action matching is not evaluated here.
func CheckPermissionConditions(p Permission, ctx map[string]any) bool {
	for k, want := range p.Conditions {
		got, ok := ctx[k]
		if !ok || !strictEqual(want, got) {
			return false
		}
	}
	return true
}

// strictEqual compares values of the same dynamic type. Non-comparable values
// (maps, slices, funcs) are never equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// PermissionSet is an insertion-ordered set of permissions keyed by Permission.Key.
type PermissionSet struct {
	keys  map[string]struct{}
	items []Permission
}

// NewPermissionSet creates a set containing perms.
func NewPermissionSet(perms ...Permission) *PermissionSet {
	s := &PermissionSet{keys: make(map[string]struct{}, len(perms))}
	s.Add(perms...)
	return s
}

// Add inserts permissions that are not already present.
func (s *PermissionSet) Add(perms ...Permission) {
	for _, p := range perms {
		k := p.Key()
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = struct{}{}
		s.items = append(s.items, p)
	}
}

// Contains reports whether a structurally equal permission is present.
func (s *PermissionSet) Contains(p Permission) bool {
	_, ok := s.keys[p.Key()]
	return ok
}

// Len returns the number of distinct permissions.
func (s *PermissionSet) Len() int {
	return len(s.items)
}

// Slice returns a copy of the permissions in insertion order.
func (s *PermissionSet) Slice() []Permission {
	out := make([]Permission, len(s.items))
	copy(out, s.items)
	return out
}
