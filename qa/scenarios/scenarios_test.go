package scenarios

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/roadside/core/events"
)

func TestBundledScenarios(t *testing.T) {
	all, err := Bundled()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for _, sc := range all {
		t.Run(sc.Name, func(t *testing.T) {
			rep, err := Run(context.Background(), sc, Options{})
			require.NoError(t, err)
			for _, f := range rep.Failures {
				t.Error(f)
			}
		})
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	sc, err := parse([]byte(`name: wrong expectations
technicians: [{id: t1}]
draws: [0.5]
steps:
  - create: {requester: u1, type: flat-tyre, location: {lat: 1, lng: 1}}
    expect: {status: accepted, technician: t9}
  - accept: true
`))
	require.NoError(t, err)
	rep, err := Run(context.Background(), sc, Options{})
	require.NoError(t, err)
	assert.False(t, rep.Passed())
	require.Len(t, rep.Failures, 3)
	assert.Contains(t, rep.Failures[0], "status pending, want accepted")
	assert.Contains(t, rep.Failures[1], `technician "t1", want "t9"`)
	assert.Contains(t, rep.Failures[2], "step 2: unexpected error")
}

func TestRunPrintsEvents(t *testing.T) {
	all, err := Bundled()
	require.NoError(t, err)
	var buf bytes.Buffer
	rep, err := Run(context.Background(), all[0], Options{Out: &buf})
	require.NoError(t, err)
	assert.True(t, rep.Passed(), rep.Failures)
	assert.Contains(t, buf.String(), events.KindStateChanged)
	assert.Contains(t, buf.String(), events.KindTechnicianBlacklisted)
	assert.Equal(t, "decline-twice-then-rematch-2", rep.Request.ID)
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	dir := t.TempDir()
	cases := map[string]string{
		"bad.yaml":       ":",
		"noname.yaml":    "steps: [{advance: 1s}]",
		"nosteps.yaml":   "name: empty",
		"twoacts.yaml":   "name: x\nsteps: [{accept: true, cancel: true}]",
		"backwards.yaml": "name: x\nsteps: [{advance: -1s}]",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "cancel-during-dispatch", slug(" Cancel  during dispatch "))
	assert.Equal(t, "scenario", slug(""))
}
