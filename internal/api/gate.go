package api

import (
	"context"

	"github.com/argus-admin/argus-core/internal/auth"
)

// AccessLevel describes how a route may be reached.
type AccessLevel int

const (
	// AccessPublic routes require no session.
	AccessPublic AccessLevel = iota
	// AccessAuthenticated routes require any valid session.
	AccessAuthenticated
	// AccessSelfOrPermission routes allow the resource owner, or any
	// identity holding the route's permission.
	AccessSelfOrPermission
	// AccessPermission routes require the route's permission.
	AccessPermission
)

// RouteClass is the outcome of classifying a request before dispatch.
type RouteClass struct {
	Access     AccessLevel
	Permission auth.Permission
}

// routeTable maps method plus chi route pattern to a classification.
// Every registered route must appear here; unknown routes default to
// requiring authentication so a forgotten entry fails closed.
var routeTable = map[string]RouteClass{
	"GET /health":                    {Access: AccessPublic},
	"POST /api/auth/login":           {Access: AccessPublic},
	"POST /api/auth/forgot-password": {Access: AccessPublic},
	"POST /api/auth/reset-password":  {Access: AccessPublic},
	"POST /api/users":                {Access: AccessPublic},
	"POST /api/auth/logout":          {Access: AccessAuthenticated},
	"GET /api/auth/me":               {Access: AccessAuthenticated},
	"GET /events":                    {Access: AccessAuthenticated},
	"GET /api/users":                 {Access: AccessPermission, Permission: auth.PermUserList},
	"GET /api/users/{id}":            {Access: AccessSelfOrPermission, Permission: auth.PermUserManage},
	"PUT /api/users/{id}":            {Access: AccessSelfOrPermission, Permission: auth.PermUserManage},
	"DELETE /api/users/{id}":         {Access: AccessPermission, Permission: auth.PermUserDelete},
	"GET /api/roles":                 {Access: AccessPermission, Permission: auth.PermRoleManage},
	"POST /api/roles":                {Access: AccessPermission, Permission: auth.PermRoleManage},
	"GET /api/audit":                 {Access: AccessPermission, Permission: auth.PermAuditRead},
}

// Classify resolves the access requirements for a method and chi route
// pattern. Patterns not present in the table are treated as
// authenticated-only.
func Classify(method, pattern string) RouteClass {
	if class, ok := routeTable[method+" "+pattern]; ok {
		return class
	}
	return RouteClass{Access: AccessAuthenticated}
}

// Decide applies a route classification to a resolved identity.
//
// Checks run in a fixed order: public routes pass unconditionally, then
// a missing identity fails with ErrSessionInvalid, then ownership and
// permission requirements are evaluated. It returns nil when the request
// may proceed, ErrSessionInvalid when a session is required but absent,
// and ErrForbidden when the identity lacks the required standing.
// resourceOwnerID is the user ID that owns the addressed resource, or
// empty when the route has no owner.
func Decide(ctx context.Context, class RouteClass, identity *auth.Identity, resourceOwnerID string, resolver auth.RoleResolver) error {
	if class.Access == AccessPublic {
		return nil
	}
	if identity == nil {
		return auth.ErrSessionInvalid
	}
	switch class.Access {
	case AccessAuthenticated:
		return nil
	case AccessSelfOrPermission:
		if resourceOwnerID != "" && identity.UserID == resourceOwnerID {
			return nil
		}
		return requirePermission(ctx, identity, class.Permission, resolver)
	case AccessPermission:
		return requirePermission(ctx, identity, class.Permission, resolver)
	default:
		return auth.ErrForbidden
	}
}

func requirePermission(ctx context.Context, identity *auth.Identity, perm auth.Permission, resolver auth.RoleResolver) error {
	if identity == nil {
		return auth.ErrSessionInvalid
	}
	ok, err := auth.HasPermission(ctx, identity.Role, perm, resolver)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrForbidden
	}
	return nil
}
