package middleware

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Resources guarded by the policy table.
const (
	ResourceLeave        = "leave"
	ResourceLeaveBalance = "leave_balance"
	ResourceGateDuty     = "gate_duty"
	ResourceOutDuty      = "out_duty"
	ResourceHoliday      = "holiday"
	ResourceEmployee     = "employee"
)

// Actions guarded by the policy table.
const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionRequest = "request"
	ActionApprove = "approve"
)

// PolicyRule grants an action on a resource to a set of roles.
type PolicyRule struct {
	Resource string
	Action   string
	Roles    []models.UserRole
}

var (
	allRoles  = []models.UserRole{models.RoleOfficeAdmin, models.RoleUnitIncharge, models.RoleCRQ}
	adminOnly = []models.UserRole{models.RoleOfficeAdmin}
)

// DefaultPolicy is the authorization table of the API. Unit scoping of
// unit_incharge users is applied by the services on the target employee.
var DefaultPolicy = []PolicyRule{
	{ResourceLeave, ActionRead, allRoles},
	{ResourceLeave, ActionWrite, adminOnly},
	{ResourceLeave, ActionRequest, []models.UserRole{models.RoleOfficeAdmin, models.RoleUnitIncharge}},
	{ResourceLeave, ActionApprove, []models.UserRole{models.RoleOfficeAdmin, models.RoleCRQ}},
	{ResourceLeaveBalance, ActionRead, allRoles},
	{ResourceLeaveBalance, ActionWrite, adminOnly},
	{ResourceGateDuty, ActionRead, allRoles},
	{ResourceGateDuty, ActionWrite, adminOnly},
	{ResourceOutDuty, ActionRead, allRoles},
	{ResourceOutDuty, ActionWrite, []models.UserRole{models.RoleOfficeAdmin, models.RoleUnitIncharge}},
	{ResourceHoliday, ActionRead, allRoles},
	{ResourceHoliday, ActionWrite, adminOnly},
	{ResourceEmployee, ActionRead, allRoles},
}

// Policy evaluates {role, resource, action} requests against a casbin enforcer.
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy loads rules into an in-memory enforcer.
func NewPolicy(rules []PolicyRule) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	var lines [][]string
	for _, rule := range rules {
		for _, role := range rule.Roles {
			lines = append(lines, []string{string(role), rule.Resource, rule.Action})
		}
	}
	if len(lines) > 0 {
		if _, err := enforcer.AddPolicies(lines); err != nil {
			return nil, fmt.Errorf("add policies: %w", err)
		}
	}
	return &Policy{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform action on resource.
func (p *Policy) Allowed(role models.UserRole, resource, action string) (bool, error) {
	return p.enforcer.Enforce(string(role), resource, action)
}

// Authorize rejects requests whose role is not granted {resource, action}.
// It must run after JWT.
func (p *Policy) Authorize(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		ok, err := p.Allowed(claims.Role, resource, action)
		if err != nil {
			response.Error(c, appErrors.Internal(err, "failed to evaluate policy"))
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s %s", claims.Role, action, resource)))
			c.Abort()
			return
		}
		c.Next()
	}
}
