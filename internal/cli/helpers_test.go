package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRoster = `
competition: {id: comp-1, name: Club Meet, date: "2026-03-14"}
athletes:
  - id: a1
    first_name: Ann
    last_name: Able
    gender: F
    weight_class: "63"
    lot: 2
    bodyweight_kg: 62.5
    openers: {squat: 100, bench: 55, deadlift: 120}
  - id: a2
    first_name: Bea
    last_name: Brown
    gender: F
    weight_class: "63"
    lot: 1
    bodyweight_kg: 61.8
    openers: {squat: 95, bench: 60, deadlift: 130}
  - id: a3
    first_name: Cy
    last_name: Cole
    gender: M
    weight_class: "83"
`

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// importedDB writes testRoster, imports it and returns the database path.
func importedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	roster := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(roster, []byte(testRoster), 0o644))

	db := filepath.Join(dir, "meet.db")
	_, err := runCLI(t, "import", "--db", db, roster)
	require.NoError(t, err)
	return db
}
