package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/pkg/response"
)

// RequireRole admits only callers whose role is one of allowedRoleIDs.
// Must run after Authenticate.
func RequireRole(allowedRoleIDs ...int) func(http.Handler) http.Handler {
	names := make([]string, 0, len(allowedRoleIDs))
	for _, id := range allowedRoleIDs {
		names = append(names, entity.Actor{RoleID: id}.RoleName())
	}
	denied := fmt.Sprintf("Only %s accounts can access this resource", strings.Join(names, " or "))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Caller identity not found")
				return
			}

			if !slices.Contains(allowedRoleIDs, actor.RoleID) {
				response.Forbidden(w, denied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDAdmin)(next)
}

func RequireDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDDoctor)(next)
}

func RequirePatient(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDPatient)(next)
}

// RequirePatientOrDoctor guards endpoints where either party of an
// appointment may act.
func RequirePatientOrDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleIDPatient, entity.RoleIDDoctor)(next)
}
