package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

func (e *Env) printJSON(v interface{}) error {
	enc := json.NewEncoder(e.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *Env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.Out, 0, 0, 2, ' ', 0)
}

func (e *Env) printSchools(schools []*chapters.School) error {
	if e.JSON {
		return e.printJSON(schools)
	}
	w := e.table()
	fmt.Fprintln(w, "ID\tNAME\tLOCATION\tVOLUNTEER HOURS\tACTIVE MEMBERS")
	for _, s := range schools {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.Name, s.Location, s.VolunteerHours, s.ActiveMembers)
	}
	return w.Flush()
}

func (e *Env) printAssignments(assignments []*chapters.Assignment) error {
	if e.JSON {
		return e.printJSON(assignments)
	}
	w := e.table()
	fmt.Fprintln(w, "ID\tUSER\tSCHOOL\tROLE\tACTIVE\tASSIGNED BY")
	for _, a := range assignments {
		school := a.SchoolID
		if a.School != nil && a.School.Name != "" {
			school = a.School.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", a.ID, a.UserID, school, a.Role, a.IsActive, a.AssignedBy)
	}
	return w.Flush()
}

func (e *Env) printSchoolsWithAdmins(all []*chapters.SchoolWithAdmins) error {
	if e.JSON {
		return e.printJSON(all)
	}
	w := e.table()
	fmt.Fprintln(w, "SCHOOL\tNAME\tADMINS")
	for _, s := range all {
		admins := make([]string, 0, len(s.Admins))
		for _, a := range s.Admins {
			admins = append(admins, fmt.Sprintf("%s (%s)", a.UserID, a.Role))
		}
		if len(admins) == 0 {
			admins = append(admins, "-")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.School.ID, s.School.Name, strings.Join(admins, ", "))
	}
	return w.Flush()
}

func (e *Env) printPermissions(p *chapters.PermissionSummary) error {
	if e.JSON {
		return e.printJSON(p)
	}
	w := e.table()
	fmt.Fprintf(w, "User:\t%s\n", p.UserID)
	if p.SchoolID != "" {
		fmt.Fprintf(w, "School:\t%s\n", p.SchoolID)
	}
	fmt.Fprintf(w, "Role:\t%s\n", p.Role)

	actions := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		actions[i] = string(a)
	}
	roles := make([]string, len(p.AssignableRoles))
	for i, r := range p.AssignableRoles {
		roles[i] = string(r)
	}
	fmt.Fprintf(w, "Actions:\t%s\n", orDash(strings.Join(actions, ", ")))
	fmt.Fprintf(w, "Can assign:\t%s\n", orDash(strings.Join(roles, ", ")))
	return w.Flush()
}

func (e *Env) printEvents(events []*audit.Event) error {
	if e.JSON {
		return e.printJSON(events)
	}
	w := e.table()
	fmt.Fprintln(w, "TIME\tEVENT\tACTOR\tTARGET\tSCHOOL\tMESSAGE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Timestamp.UTC().Format(time.RFC3339), ev.EventType, ev.ActorID,
			orDash(ev.TargetUserID), ev.SchoolID, ev.Message)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
