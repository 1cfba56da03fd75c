package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/config"
)

func newCommand(env *Env, name, description string) *Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return &Command{
		Name:        name,
		Description: description,
		Flags:       fs,
		Subcommands: map[string]*Command{},
		Out:         env.Out,
	}
}

// withBackend runs fn against the local engine or the remote server
func withBackend(ctx context.Context, env *Env, fn func(Backend) error) error {
	b, done, err := env.backend(ctx)
	if err != nil {
		return err
	}
	defer done()
	return fn(b)
}

func newMigrateCommand(env *Env) *Command {
	cmd := newCommand(env, "migrate", "Create or upgrade the database schema")
	cmd.Run = func(ctx context.Context, _ []string) error {
		if err := env.localOnly("migrate"); err != nil {
			return err
		}
		var storageType string
		_, done, err := env.local(ctx, func(cfg *config.Config) {
			cfg.Storage.AutoMigrate = true
			storageType = cfg.Storage.Type
		})
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		done()
		env.Logger.WithField("storage", storageType).Info("Schema is up to date")
		return nil
	}
	return cmd
}

func newAddSchoolCommand(env *Env) *Command {
	cmd := newCommand(env, "add-school", "Create a school")
	name := cmd.Flags.String("name", "", "School name (required)")
	description := cmd.Flags.String("description", "", "Description")
	location := cmd.Flags.String("location", "", "Location")

	cmd.Run = func(ctx context.Context, _ []string) error {
		if strings.TrimSpace(*name) == "" {
			return errors.New("-name is required")
		}
		return withBackend(ctx, env, func(b Backend) error {
			school, err := b.CreateSchool(ctx, chapters.SchoolRequest{
				Name:        *name,
				Description: *description,
				Location:    *location,
			})
			if err != nil {
				return err
			}
			return env.printSchools([]*chapters.School{school})
		})
	}
	return cmd
}

func newAssignCommand(env *Env) *Command {
	cmd := newCommand(env, "assign", "Grant a chapter role to a user at a school")
	school := cmd.Flags.String("school", "", "School ID (required)")
	user := cmd.Flags.String("user", "", "User ID (required)")
	roleName := cmd.Flags.String("role", string(chapters.RoleChapterAdmin), "CHAPTER_ADMIN or CHAPTER_SUPER_ADMIN")

	cmd.Run = func(ctx context.Context, _ []string) error {
		if *school == "" || *user == "" {
			return errors.New("-school and -user are required")
		}
		role, err := chapters.ParseRole(*roleName)
		if err != nil || !role.IsChapterRole() {
			return fmt.Errorf("invalid role %q: must be CHAPTER_ADMIN or CHAPTER_SUPER_ADMIN", *roleName)
		}
		return withBackend(ctx, env, func(b Backend) error {
			a, err := b.Assign(ctx, *school, *user, role)
			if err != nil {
				return err
			}
			return env.printAssignments([]*chapters.Assignment{a})
		})
	}
	return cmd
}

func newRemoveCommand(env *Env) *Command {
	cmd := newCommand(env, "remove", "Deactivate a chapter admin assignment")
	id := cmd.Flags.String("id", "", "Assignment ID (required)")

	cmd.Run = func(ctx context.Context, args []string) error {
		assignmentID := *id
		if assignmentID == "" && len(args) > 0 {
			assignmentID = args[0]
		}
		if assignmentID == "" {
			return errors.New("-id is required")
		}
		return withBackend(ctx, env, func(b Backend) error {
			a, err := b.Remove(ctx, assignmentID)
			if err != nil {
				return err
			}
			return env.printAssignments([]*chapters.Assignment{a})
		})
	}
	return cmd
}

func newListCommand(env *Env) *Command {
	cmd := newCommand(env, "list", "List admins of a school, schools of a user, or everything")
	school := cmd.Flags.String("school", "", "List the active admins of this school")
	user := cmd.Flags.String("user", "", "List the active assignments of this user")

	cmd.Run = func(ctx context.Context, _ []string) error {
		return withBackend(ctx, env, func(b Backend) error {
			switch {
			case *school != "":
				admins, err := b.ListAdminsForSchool(ctx, *school)
				if err != nil {
					return err
				}
				return env.printAssignments(admins)
			case *user != "":
				assignments, err := b.ListSchoolsForUser(ctx, *user)
				if err != nil {
					return err
				}
				return env.printAssignments(assignments)
			default:
				all, err := b.ListAllSchoolsWithAdmins(ctx)
				if err != nil {
					return err
				}
				return env.printSchoolsWithAdmins(all)
			}
		})
	}
	return cmd
}

func newStatsCommand(env *Env) *Command {
	cmd := newCommand(env, "stats", "Set a school's volunteer hours and/or active members")
	school := cmd.Flags.String("school", "", "School ID (required)")
	hours := cmd.Flags.Int64("volunteer-hours", -1, "Volunteer hours; unchanged when negative")
	members := cmd.Flags.Int64("active-members", -1, "Active members; unchanged when negative")

	cmd.Run = func(ctx context.Context, _ []string) error {
		if *school == "" {
			return errors.New("-school is required")
		}
		var h, m *int64
		if *hours >= 0 {
			h = hours
		}
		if *members >= 0 {
			m = members
		}
		if h == nil && m == nil {
			return errors.New("set -volunteer-hours and/or -active-members")
		}
		return withBackend(ctx, env, func(b Backend) error {
			s, err := b.UpdateSchoolStats(ctx, *school, h, m)
			if err != nil {
				return err
			}
			return env.printSchools([]*chapters.School{s})
		})
	}
	return cmd
}

func newPermissionsCommand(env *Env) *Command {
	cmd := newCommand(env, "permissions", "Show what the current caller may do")
	school := cmd.Flags.String("school", "", "Resolve the role at this school")

	cmd.Run = func(ctx context.Context, _ []string) error {
		return withBackend(ctx, env, func(b Backend) error {
			summary, err := b.Permissions(ctx, *school)
			if err != nil {
				return err
			}
			return env.printPermissions(summary)
		})
	}
	return cmd
}

func newAuditCommand(env *Env) *Command {
	cmd := newCommand(env, "audit", "Show the audit trail (database audit only)")
	school := cmd.Flags.String("school", "", "Only events at this school")
	user := cmd.Flags.String("user", "", "Only events targeting this user")
	since := cmd.Flags.Duration("since", 0, "Only events newer than this, e.g. 72h")
	limit := cmd.Flags.Int("limit", 50, "Maximum events")

	cmd.Run = func(ctx context.Context, _ []string) error {
		if err := env.localOnly("audit"); err != nil {
			return err
		}
		a, done, err := env.local(ctx)
		if err != nil {
			return err
		}
		defer done()
		if a.AuditDB == nil {
			return errors.New("database audit is not enabled (set CHAPTERS_AUDIT_DATABASE=true)")
		}

		filter := audit.Filter{SchoolID: *school, TargetUserID: *user, Limit: *limit}
		if *since > 0 {
			from := time.Now().Add(-*since)
			filter.Since = &from
		}
		events, err := a.AuditDB.List(ctx, filter)
		if err != nil {
			return err
		}
		return env.printEvents(events)
	}
	return cmd
}

func newMaintenanceCommand(env *Env) *Command {
	cmd := newCommand(env, "maintenance", "List or run maintenance jobs")

	list := newCommand(env, "list", "List registered jobs")
	list.Run = func(ctx context.Context, _ []string) error {
		if err := env.localOnly("maintenance"); err != nil {
			return err
		}
		a, done, err := env.local(ctx)
		if err != nil {
			return err
		}
		defer done()
		for _, name := range a.Jobs.Jobs() {
			fmt.Fprintln(env.Out, name)
		}
		return nil
	}

	run := newCommand(env, "run", "Run a job now: maintenance run <job>")
	run.Run = func(ctx context.Context, args []string) error {
		if err := env.localOnly("maintenance"); err != nil {
			return err
		}
		if len(args) != 1 {
			return errors.New("usage: maintenance run <job>")
		}
		a, done, err := env.local(ctx)
		if err != nil {
			return err
		}
		defer done()

		start := time.Now()
		if err := a.Jobs.Run(ctx, args[0]); err != nil {
			return err
		}
		env.Logger.WithField("job", args[0]).WithField("duration", time.Since(start).String()).Info("Job completed")
		return nil
	}

	cmd.Subcommands[list.Name] = list
	cmd.Subcommands[run.Name] = run
	return cmd
}
