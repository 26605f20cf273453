package policy

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/rowfence/rowfence/modules/core/domain/aggregates/principal"
	"github.com/rowfence/rowfence/pkg/schema"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && p.obj == r.obj && (p.act == r.act || p.act == "*")
`

func roleSubject(r principal.Role) string {
	return "role:" + string(r)
}

// buildEnforcer derives the role/operation capability matrix from the entity
// registry: viewers read, users and managers additionally write ordinary
// entities, admins also manage the principal entity. Policies are loaded once;
// the enforcer is read-only afterwards.
func buildEnforcer(registry *schema.Registry) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("policy: invalid rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("policy: enforcer init: %w", err)
	}

	groupings := [][2]principal.Role{
		{principal.RoleUser, principal.RoleViewer},
		{principal.RoleManager, principal.RoleUser},
		{principal.RoleAdmin, principal.RoleManager},
		{principal.RoleSuperadmin, principal.RoleAdmin},
	}
	for _, g := range groupings {
		if _, err := e.AddGroupingPolicy(roleSubject(g[0]), roleSubject(g[1])); err != nil {
			return nil, fmt.Errorf("policy: grouping: %w", err)
		}
	}

	for _, entityType := range registry.Types() {
		entity, _ := registry.Entity(entityType)

		rules := [][]string{
			{roleSubject(principal.RoleViewer), entityType, string(OpRead)},
		}
		if entity.SelfScope {
			// Ordinary roles read principals; only admins manage them.
			// Self-service updates are an evaluator-level exception.
			rules = append(rules,
				[]string{roleSubject(principal.RoleAdmin), entityType, "*"},
			)
		} else {
			rules = append(rules,
				[]string{roleSubject(principal.RoleUser), entityType, "*"},
			)
		}
		for _, rule := range rules {
			if _, err := e.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return nil, fmt.Errorf("policy: add policy: %w", err)
			}
		}
	}

	return e, nil
}
