package api

import (
	"net/http"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
)

// createSchool adds a school; system admins only
func (s *Server) createSchool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := contextkeys.GetCallerID(ctx)

	var req chapters.SchoolRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.engine.RequireAuthorized(ctx, callerID, chapters.ActionCreateSchools, ""); err != nil {
		s.writeError(w, r, err)
		return
	}

	req.CreatedBy = callerID
	school, err := s.engine.CreateSchool(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, school)
}

// updateSchoolStats sets volunteerHours and/or activeMembers. Each provided
// statistic is checked against its own permission.
func (s *Server) updateSchoolStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := contextkeys.GetCallerID(ctx)

	schoolID, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req chapters.StatsRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.SchoolID = schoolID
	req.UpdatedBy = callerID

	stats := req.Stats()
	if len(stats) == 0 {
		s.writeError(w, r, chapters.NewValidationError("stats", "at least one of volunteerHours or activeMembers is required"))
		return
	}
	for _, stat := range stats {
		if err := s.engine.CheckEditSchoolStats(ctx, callerID, schoolID, stat); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	school, err := s.engine.UpdateSchoolStats(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, school)
}

// getPermissions summarizes what the caller may do, optionally at ?schoolId=
func (s *Server) getPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.engine.SummarizePermissions(ctx, contextkeys.GetCallerID(ctx), httputil.ParseQueryString(r, "schoolId", ""))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, summary)
}
