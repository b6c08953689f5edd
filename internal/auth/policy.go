package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the required role for the request. Filing an access
// request is open to unauthenticated callers; everything else under /api/
// needs at least a member, and mutations need an admin.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/access-requests" && method == http.MethodPost:
		return "", false
	case strings.HasPrefix(path, "/api/v1/access-requests"):
		return RoleAdmin, true
	case path == "/api/v1/periods/defaults":
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/periods"):
		if method == http.MethodGet && !strings.Contains(path, "/statement.") {
			return RoleMember, true
		}
		return RoleAdmin, true
	case strings.HasPrefix(path, "/api/v1/balances"):
		return RoleMember, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleMember, true
		}
		return RoleAdmin, true
	}
	return "", false
}
