package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
)

// AssignAdminRequest is the body of POST /api/v1/admins
type AssignAdminRequest struct {
	SchoolID     string `json:"schoolId"`
	TargetUserID string `json:"targetUserId"`
	Role         string `json:"role"`
}

// listAdmins serves three views:
//
//	?schoolId=  active admins of a school, any authenticated caller
//	?userId=    a user's assignments, self or system admins
//	(none)      every active school with its admins, system admins only
func (s *Server) listAdmins(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := contextkeys.GetCallerID(ctx)

	if schoolID := httputil.ParseQueryString(r, "schoolId", ""); schoolID != "" {
		admins, err := s.engine.ListAdminsForSchool(ctx, schoolID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		_ = httputil.WriteSuccess(w, admins)
		return
	}

	if userID := httputil.ParseQueryString(r, "userId", ""); userID != "" {
		if userID != callerID {
			if err := s.engine.RequireSystemAdmin(ctx, callerID); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		assignments, err := s.engine.ListSchoolsForUser(ctx, userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		_ = httputil.WriteSuccess(w, assignments)
		return
	}

	if err := s.engine.RequireSystemAdmin(ctx, callerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	schools, err := s.engine.ListAllSchoolsWithAdmins(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, schools)
}

// assignAdmin creates or reactivates an assignment
func (s *Server) assignAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := contextkeys.GetCallerID(ctx)

	var req AssignAdminRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.SchoolID = strings.TrimSpace(req.SchoolID)
	req.TargetUserID = strings.TrimSpace(req.TargetUserID)

	fields := map[string]string{}
	if req.SchoolID == "" {
		fields["schoolId"] = "is required"
	}
	if req.TargetUserID == "" {
		fields["targetUserId"] = "is required"
	}
	role, err := chapters.ParseRole(req.Role)
	if err != nil || !role.IsChapterRole() {
		fields["role"] = "must be CHAPTER_SUPER_ADMIN or CHAPTER_ADMIN"
	}
	if len(fields) > 0 {
		s.writeError(w, r, &chapters.ValidationError{Fields: fields})
		return
	}

	if err := s.engine.CheckAssignRole(ctx, callerID, role, req.SchoolID); err != nil {
		s.writeError(w, r, err)
		return
	}

	assignment, err := s.engine.Assign(ctx, chapters.AssignRequest{
		SchoolID:     req.SchoolID,
		TargetUserID: req.TargetUserID,
		Role:         role,
		AssignedBy:   callerID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, assignment)
}

// removeAdmin deactivates the assignment named by the {id} path segment or
// the adminId query parameter
func (s *Server) removeAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := contextkeys.GetCallerID(ctx)

	assignmentID := httputil.FirstNonEmpty(mux.Vars(r)["id"], httputil.ParseQueryString(r, "adminId", ""))
	if err := requireField("adminId", assignmentID); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.CheckRemoveAdmin(ctx, callerID, assignmentID); err != nil {
		s.writeError(w, r, err)
		return
	}

	assignment, err := s.engine.Remove(ctx, assignmentID, callerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, assignment)
}
