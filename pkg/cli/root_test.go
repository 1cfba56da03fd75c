package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand(&Env{Out: &bytes.Buffer{}})

	assert.Equal(t, "chapterctl", root.Name)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{
		"migrate",
		"add-school",
		"assign",
		"remove",
		"list",
		"stats",
		"permissions",
		"audit",
		"maintenance",
	}
	for _, name := range expectedCommands {
		assert.Contains(t, root.Subcommands, name, "Expected subcommand %s to be registered", name)
	}
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))

	maint := root.Subcommands["maintenance"]
	assert.Contains(t, maint.Subcommands, "list")
	assert.Contains(t, maint.Subcommands, "run")
}

func TestCommandUsage(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(&Env{Out: &out})

	require.NoError(t, root.Execute(context.Background(), nil))
	output := out.String()

	assert.Contains(t, output, "Usage: chapterctl")
	assert.Contains(t, output, "Commands:")
	assert.Contains(t, output, "add-school")
	assert.Contains(t, output, "Create a school")
	assert.Contains(t, output, "-server")

	out.Reset()
	require.NoError(t, root.Execute(context.Background(), []string{"help"}))
	assert.Contains(t, out.String(), "Usage: chapterctl")
}

func TestExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand(&Env{Out: &bytes.Buffer{}})
	err := root.Execute(context.Background(), []string{"frobnicate"})
	assert.EqualError(t, err, "unknown command: frobnicate")
}

func TestExecute_BadFlag(t *testing.T) {
	root := NewRootCommand(&Env{Out: &bytes.Buffer{}})
	err := root.Execute(context.Background(), []string{"-nope", "list"})
	assert.Error(t, err)
}

func TestEnv_Actor(t *testing.T) {
	t.Setenv("USER", "")
	assert.Equal(t, "chapterctl", (&Env{}).actor())
	assert.Equal(t, "ops", (&Env{As: "ops"}).actor())

	t.Setenv("USER", "alice")
	assert.Equal(t, "alice", (&Env{}).actor())
}
