package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// writeError maps an engine error onto a status code and error body.
// Dependency and unknown failures are logged; their text is not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		denied     *chapters.AccessDeniedError
		validation *chapters.ValidationError
		dependency *chapters.DependencyError
	)

	switch {
	case errors.Is(err, chapters.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, err.Error())
	case errors.As(err, &denied):
		var details map[string]string
		if len(denied.RequiredRoles) > 0 {
			roles := make([]string, len(denied.RequiredRoles))
			for i, role := range denied.RequiredRoles {
				roles[i] = string(role)
			}
			details = map[string]string{"requiredRoles": strings.Join(roles, ",")}
		}
		httputil.WriteDetailedError(w, http.StatusForbidden, denied.Error(), details)
	case errors.Is(err, chapters.ErrSchoolNotFound), errors.Is(err, chapters.ErrAssignmentNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.As(err, &validation):
		httputil.WriteDetailedError(w, http.StatusBadRequest, "validation failed", validation.Fields)
	case errors.As(err, &dependency):
		observability.FromContext(r.Context(), s.logger).
			WithError(err).
			WithField("op", dependency.Op).
			Error("dependency failure")
		httputil.WriteServiceUnavailable(w, "a backing service is unavailable, retry later")
	default:
		observability.FromContext(r.Context(), s.logger).WithError(err).Error("unhandled error")
		httputil.WriteInternalError(w)
	}
}

// requireField returns a ValidationError when value is empty
func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return chapters.NewValidationError(field, "is required")
	}
	return nil
}
