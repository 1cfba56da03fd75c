package chapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// AssignRequest grants Role to TargetUserID at SchoolID
type AssignRequest struct {
	SchoolID     string `json:"schoolId"`
	TargetUserID string `json:"targetUserId"`
	Role         Role   `json:"role"`
	AssignedBy   string `json:"-"`
}

func (r AssignRequest) validate() error {
	v := &ValidationError{}
	if r.SchoolID == "" {
		v.add("schoolId", "is required")
	}
	if r.TargetUserID == "" {
		v.add("targetUserId", "is required")
	}
	if !r.Role.IsChapterRole() {
		v.add("role", "must be CHAPTER_SUPER_ADMIN or CHAPTER_ADMIN")
	}
	if r.AssignedBy == "" {
		v.add("assignedBy", "is required")
	}
	return v.orNil()
}

// StatsRequest sets one or both editable statistics of a school
type StatsRequest struct {
	SchoolID       string `json:"-"`
	VolunteerHours *int64 `json:"volunteerHours,omitempty"`
	ActiveMembers  *int64 `json:"activeMembers,omitempty"`
	UpdatedBy      string `json:"-"`
}

// Stats lists the statistics the request touches
func (r StatsRequest) Stats() []Stat {
	var stats []Stat
	if r.VolunteerHours != nil {
		stats = append(stats, StatVolunteerHours)
	}
	if r.ActiveMembers != nil {
		stats = append(stats, StatActiveMembers)
	}
	return stats
}

func (r StatsRequest) validate() error {
	v := &ValidationError{}
	if r.SchoolID == "" {
		v.add("schoolId", "is required")
	}
	if r.UpdatedBy == "" {
		v.add("updatedBy", "is required")
	}
	if r.VolunteerHours == nil && r.ActiveMembers == nil {
		v.add("stats", "at least one of volunteerHours or activeMembers is required")
	}
	if r.VolunteerHours != nil && *r.VolunteerHours < 0 {
		v.add(string(StatVolunteerHours), "must not be negative")
	}
	if r.ActiveMembers != nil && *r.ActiveMembers < 0 {
		v.add(string(StatActiveMembers), "must not be negative")
	}
	return v.orNil()
}

// Assign creates or reactivates the (TargetUserID, SchoolID) assignment with
// the requested role. An existing row, active or not, is updated in place, so
// at most one row ever exists per pair. The caller must already have passed
// CheckAssignRole; Assign performs no authorization.
func (e *Engine) Assign(ctx context.Context, req AssignRequest) (result *Assignment, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "chapters.Assign",
		attribute.String("school.id", req.SchoolID),
		attribute.String("user.id", req.TargetUserID),
		attribute.String("role", string(req.Role)))
	defer func() {
		e.metrics.RecordLifecycle("assign", err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	school, err := e.activeSchool(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	var previous *Assignment
	for attempt := 1; result == nil; attempt++ {
		if attempt > e.opts.AssignRetries {
			return nil, dependency("store: assign",
				fmt.Errorf("gave up after %d attempts: %w", e.opts.AssignRetries, ErrDuplicateAssignment))
		}

		previous, err = e.findAssignment(ctx, req.TargetUserID, req.SchoolID)
		if err != nil {
			return nil, err
		}

		if previous == nil {
			result, err = e.createAssignment(ctx, req)
			if errors.Is(err, ErrDuplicateAssignment) {
				// Lost the insert race to a concurrent first assignment; the
				// row exists now, so the next attempt updates it.
				e.metrics.RecordAssignConflict()
				e.log(ctx).WithField("attempt", attempt).Debug("Concurrent assignment detected, retrying as update")
				result, err = nil, nil
				continue
			}
		} else {
			result, err = e.updateAssignment(ctx, previous.ID, AssignmentFields{
				Role:       req.Role,
				AssignedBy: req.AssignedBy,
				IsActive:   true,
				UpdatedAt:  e.opts.Now(),
			})
		}
		if err != nil {
			return nil, err
		}
	}

	result.School = school.Ref()
	e.invalidate(ctx, assignmentKeys(result)...)

	event := assignEvent(previous, result)
	e.record(ctx, event)
	e.log(ctx).WithFields(map[string]interface{}{
		"assignment_id": result.ID,
		"school_id":     result.SchoolID,
		"user_id":       result.UserID,
		"role":          string(result.Role),
		"event":         string(event.EventType),
	}).Info("Chapter admin assigned")

	return result, nil
}

// Remove deactivates an assignment. The row is kept; removing an already
// inactive assignment is a no-op that still succeeds. The caller must already
// have passed CheckRemoveAdmin.
func (e *Engine) Remove(ctx context.Context, assignmentID, removedBy string) (result *Assignment, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "chapters.Remove", attribute.String("assignment.id", assignmentID))
	defer func() {
		e.metrics.RecordLifecycle("remove", err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	v := &ValidationError{}
	if assignmentID == "" {
		v.add("adminId", "is required")
	}
	if removedBy == "" {
		v.add("removedBy", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	existing, err := e.getAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrAssignmentNotFound
	}

	if !existing.IsActive {
		e.invalidate(ctx, assignmentKeys(existing)...)
		return existing, nil
	}

	result, err = e.updateAssignment(ctx, existing.ID, AssignmentFields{
		Role:       existing.Role,
		AssignedBy: existing.AssignedBy,
		IsActive:   false,
		UpdatedAt:  e.opts.Now(),
	})
	if err != nil {
		return nil, err
	}
	if result.School == nil {
		result.School = existing.School
	}

	e.invalidate(ctx, assignmentKeys(result)...)
	e.record(ctx, &audit.Event{
		EventType:    audit.EventTypeRemove,
		ActorID:      removedBy,
		TargetUserID: result.UserID,
		SchoolID:     result.SchoolID,
		AssignmentID: result.ID,
		Message:      fmt.Sprintf("removed %s", result.Role),
		Changes: &audit.ChangeDetails{
			Before: map[string]interface{}{"isActive": true, "role": string(existing.Role)},
			After:  map[string]interface{}{"isActive": false, "role": string(result.Role)},
		},
	})
	e.log(ctx).WithFields(map[string]interface{}{
		"assignment_id": result.ID,
		"school_id":     result.SchoolID,
		"user_id":       result.UserID,
		"removed_by":    removedBy,
	}).Info("Chapter admin removed")

	return result, nil
}

// UpdateSchoolStats writes the statistics present in req. The caller must
// already have passed CheckEditSchoolStats for each of req.Stats().
func (e *Engine) UpdateSchoolStats(ctx context.Context, req StatsRequest) (result *School, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "chapters.UpdateSchoolStats", attribute.String("school.id", req.SchoolID))
	defer func() {
		e.metrics.RecordLifecycle("update_stats", err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	before, err := e.activeSchool(ctx, req.SchoolID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := e.call(ctx)
	result, err = e.store.UpdateSchoolStats(sctx, req.SchoolID, StatsUpdate{
		VolunteerHours: req.VolunteerHours,
		ActiveMembers:  req.ActiveMembers,
		UpdatedAt:      e.opts.Now(),
	})
	cancel()
	if err != nil {
		return nil, dependency("store: update school stats", err)
	}
	if result == nil {
		return nil, ErrSchoolNotFound
	}

	e.invalidate(ctx, allSchoolsKey())
	e.record(ctx, &audit.Event{
		EventType: audit.EventTypeStatsUpdate,
		ActorID:   req.UpdatedBy,
		SchoolID:  req.SchoolID,
		Message:   "school statistics updated",
		Changes: &audit.ChangeDetails{
			Before: map[string]interface{}{
				string(StatVolunteerHours): before.VolunteerHours,
				string(StatActiveMembers):  before.ActiveMembers,
			},
			After: map[string]interface{}{
				string(StatVolunteerHours): result.VolunteerHours,
				string(StatActiveMembers):  result.ActiveMembers,
			},
		},
	})
	return result, nil
}

func assignEvent(previous, result *Assignment) *audit.Event {
	event := &audit.Event{
		EventType:    audit.EventTypeAssign,
		ActorID:      result.AssignedBy,
		TargetUserID: result.UserID,
		SchoolID:     result.SchoolID,
		AssignmentID: result.ID,
		Message:      fmt.Sprintf("assigned %s", result.Role),
		Changes: &audit.ChangeDetails{
			After: map[string]interface{}{"role": string(result.Role), "isActive": true},
		},
	}
	if previous == nil {
		return event
	}

	event.Changes.Before = map[string]interface{}{
		"role":       string(previous.Role),
		"isActive":   previous.IsActive,
		"assignedBy": previous.AssignedBy,
	}
	switch {
	case !previous.IsActive:
		event.EventType = audit.EventTypeReactivate
		event.Message = fmt.Sprintf("reactivated as %s", result.Role)
	case previous.Role != result.Role:
		event.EventType = audit.EventTypeRoleChange
		event.Message = fmt.Sprintf("role changed from %s to %s", previous.Role, result.Role)
	}
	return event
}

// record writes the audit event in the background
func (e *Engine) record(ctx context.Context, event *audit.Event) {
	audit.Stamp(ctx, event)
	e.tasks.Go(ctx, e.opts.AuditTimeout, "audit "+string(event.EventType), func(ctx context.Context) error {
		return e.audit.Log(ctx, event)
	})
}

func (e *Engine) activeSchool(ctx context.Context, schoolID string) (*School, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	school, err := e.store.GetSchool(ctx, schoolID)
	if err != nil {
		return nil, dependency("store: get school", err)
	}
	if school == nil || !school.IsActive {
		return nil, ErrSchoolNotFound
	}
	return school, nil
}

func (e *Engine) getAssignment(ctx context.Context, id string) (*Assignment, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	a, err := e.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, dependency("store: get assignment", err)
	}
	return a, nil
}

func (e *Engine) findAssignment(ctx context.Context, userID, schoolID string) (*Assignment, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	a, err := e.store.FindAssignment(ctx, userID, schoolID)
	if err != nil {
		return nil, dependency("store: find assignment", err)
	}
	return a, nil
}

func (e *Engine) createAssignment(ctx context.Context, req AssignRequest) (*Assignment, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	a, err := e.store.CreateAssignment(ctx, NewAssignment{
		ID:         e.opts.NewID(),
		UserID:     req.TargetUserID,
		SchoolID:   req.SchoolID,
		Role:       req.Role,
		AssignedBy: req.AssignedBy,
		CreatedAt:  e.opts.Now(),
	})
	if errors.Is(err, ErrDuplicateAssignment) {
		return nil, err
	}
	if err != nil {
		return nil, dependency("store: create assignment", err)
	}
	return a, nil
}

func (e *Engine) updateAssignment(ctx context.Context, id string, fields AssignmentFields) (*Assignment, error) {
	ctx, cancel := e.call(ctx)
	defer cancel()
	a, err := e.store.UpdateAssignment(ctx, id, fields)
	if err != nil {
		return nil, dependency("store: update assignment", err)
	}
	if a == nil {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

// SchoolRequest describes a new school
type SchoolRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	CreatedBy   string `json:"-"`
}

// CreateSchool adds an active school with zeroed statistics. The caller must
// already have passed RequireAuthorized for ActionCreateSchools.
func (e *Engine) CreateSchool(ctx context.Context, req SchoolRequest) (result *School, err error) {
	start := time.Now()
	defer func() { e.metrics.RecordLifecycle("create_school", err, time.Since(start)) }()

	req.Name = strings.TrimSpace(req.Name)
	v := &ValidationError{}
	if req.Name == "" {
		v.add("name", "is required")
	}
	if req.CreatedBy == "" {
		v.add("createdBy", "is required")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	now := e.opts.Now()
	school := &School{
		ID:          e.opts.NewID(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sctx, cancel := e.call(ctx)
	err = e.store.CreateSchool(sctx, school)
	cancel()
	if err != nil {
		return nil, dependency("store: create school", err)
	}

	e.invalidate(ctx, allSchoolsKey())
	e.log(ctx).WithFields(map[string]interface{}{
		"school_id":  school.ID,
		"created_by": req.CreatedBy,
	}).Info("School created")
	return school, nil
}
