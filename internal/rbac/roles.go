package rbac

// DefaultRoles returns the shipped role table.
func DefaultRoles() map[Role]RoleDefinition {
	owner := map[string]any{"owner": true}

	return map[Role]RoleDefinition{
		RoleUser: {
			Description: "Registered account",
			Permissions: []Permission{
				Allow(ResourceUser, ActionRead),
				AllowIf(ResourceUser, ActionUpdate, map[string]any{"self": true}),
				Allow(ResourceCourse, ActionRead),
				Allow(ResourceArticle, ActionRead),
				Allow(ResourceProduct, ActionRead),
				Allow(ResourceCategory, ActionRead),
			},
		},
		RoleStudent: {
			Description: "Learner enrolled in courses",
			Inherits:    []Role{RoleUser},
			Permissions: []Permission{
				AllowIf(ResourceCourse, ActionRead, map[string]any{"enrolled": true}),
				AllowIf(ResourceArticle, ActionCreate, map[string]any{"kind": "review"}),
			},
		},
		RoleMentor: {
			Description: "Creates and teaches courses",
			Inherits:    []Role{RoleUser},
			Permissions: []Permission{
				Allow(ResourceCourse, ActionCreate),
				AllowIf(ResourceCourse, ActionUpdate, owner),
				AllowIf(ResourceCourse, ActionDelete, owner),
				Allow(ResourceCategory, ActionRead),
			},
		},
		RoleWriter: {
			Description: "Publishes articles",
			Inherits:    []Role{RoleUser},
			Permissions: []Permission{
				Allow(ResourceArticle, ActionCreate),
				AllowIf(ResourceArticle, ActionUpdate, owner),
				AllowIf(ResourceArticle, ActionDelete, owner),
			},
		},
		RoleSeller: {
			Description: "Sells products in the marketplace",
			Inherits:    []Role{RoleUser},
			Permissions: []Permission{
				Allow(ResourceProduct, ActionCreate),
				AllowIf(ResourceProduct, ActionUpdate, owner),
				AllowIf(ResourceProduct, ActionDelete, owner),
			},
		},
		// admin is a flat superuser: direct manage permissions, no inheritance.
		RoleAdmin: {
			Description: "Platform administrator",
			Permissions: []Permission{
				Allow(ResourceUser, ActionManage),
				Allow(ResourceCourse, ActionManage),
				Allow(ResourceArticle, ActionManage),
				Allow(ResourceProduct, ActionManage),
				Allow(ResourceCategory, ActionManage),
				Allow(ResourceRole, ActionManage),
			},
		},
	}
}
