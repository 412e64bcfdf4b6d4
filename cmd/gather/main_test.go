package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gather/internal/config"
	"gather/pkg/testutils"
	"gather/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI runs the command line with a config path that does not exist, so the
// user's own config never leaks into a test.
func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	code := run(context.Background(), args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func setupTree(t *testing.T, files map[string]string) (src, out string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "src")
	out = filepath.Join(root, "out")
	require.NoError(t, os.Mkdir(src, 0755))
	testutils.CreateTestFilesWithContent(t, afero.NewOsFs(), src, files)
	return src, out
}

func TestRunMovesMatchingFiles(t *testing.T) {
	src, out := setupTree(t, map[string]string{
		"report-1.txt":     "1",
		"notes.txt":        "n",
		"sub/report-2.txt": "2",
	})

	res := runCLI(t, "-p", "report", "-s", src, "-t", out)
	require.Equal(t, 0, res.code, res.stderr)

	fs := afero.NewOsFs()
	assert.Equal(t, map[string]string{"report-1.txt": "1", "report-2.txt": "2"}, testutils.Snapshot(t, fs, out))
	assert.Equal(t, map[string]string{"notes.txt": "n"}, testutils.Snapshot(t, fs, src))
	assert.Contains(t, res.stdout, "moved 2 files")
	assert.Contains(t, res.stderr, "parsed configuration")
	assert.Contains(t, res.stderr, "moved file")
}

func TestRunRequiresTarget(t *testing.T) {
	src, _ := setupTree(t, map[string]string{"a.txt": "a"})

	res := runCLI(t, "-s", src)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "target path is required")
}

func TestRunRejectsBadCollision(t *testing.T) {
	src, out := setupTree(t, map[string]string{"a.txt": "a"})

	res := runCLI(t, "-s", src, "-t", out, "-c", "overwrite")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid collision setting")
}

func TestRunCollision(t *testing.T) {
	files := map[string]string{
		"a.txt":     "root a",
		"b.log":     "root b",
		"sub/a.txt": "sub a",
	}

	t.Run("fail is the default", func(t *testing.T) {
		src, out := setupTree(t, files)
		res := runCLI(t, "-p", "a", "-s", src, "-t", out)
		assert.Equal(t, 1, res.code)
		assert.Contains(t, res.stderr, "destination already exists")
		assert.Contains(t, res.stderr, filepath.Join(src, "sub", "a.txt"))
		assert.Equal(t, files, testutils.Snapshot(t, afero.NewOsFs(), src), "nothing moved")
	})

	t.Run("rename", func(t *testing.T) {
		src, out := setupTree(t, files)
		res := runCLI(t, "-p", "a", "-s", src, "-t", out, "-c", "rename")
		require.Equal(t, 0, res.code, res.stderr)
		assert.Equal(t, map[string]string{"a.txt": "root a", "a_(1).txt": "sub a"},
			testutils.Snapshot(t, afero.NewOsFs(), out))
	})

	t.Run("keep-going", func(t *testing.T) {
		src, out := setupTree(t, files)
		res := runCLI(t, "-p", "a", "-s", src, "-t", out, "-k")
		assert.Equal(t, 1, res.code)
		assert.Equal(t, map[string]string{"a.txt": "root a"}, testutils.Snapshot(t, afero.NewOsFs(), out))
		assert.Contains(t, res.stdout, "failed 1")
	})
}

func TestRunDryRun(t *testing.T) {
	files := map[string]string{"x": "x", "y": "y", "sub/z": "z"}
	src, out := setupTree(t, files)

	res := runCLI(t, "-n", "-s", src, "-t", out)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "would move 3 files")
	assert.Contains(t, res.stderr, "would move file")
	assert.Equal(t, files, testutils.Snapshot(t, afero.NewOsFs(), src))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry run creates no target")
}

func TestRunTargetIsSource(t *testing.T) {
	src, _ := setupTree(t, map[string]string{"a.txt": "a", "sub/b.txt": "b"})

	res := runCLI(t, "-s", src, "-t", src)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "already in target")
	assert.NotContains(t, res.stdout, "destination exists")
	assert.Equal(t, map[string]string{"a.txt": "a", "b.txt": "b"}, testutils.Snapshot(t, afero.NewOsFs(), src))
}

func TestRunExclude(t *testing.T) {
	src, out := setupTree(t, map[string]string{"a.txt": "a", "a.part": "p"})

	res := runCLI(t, "-s", src, "-t", out, "-x", "*.part")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, map[string]string{"a.txt": "a"}, testutils.Snapshot(t, afero.NewOsFs(), out))
}

func TestRunMissingSource(t *testing.T) {
	root := t.TempDir()
	res := runCLI(t, "-s", filepath.Join(root, "missing"), "-t", filepath.Join(root, "out"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "read directory failed")
	_, err := os.Stat(filepath.Join(root, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunJSONLogs(t *testing.T) {
	src, out := setupTree(t, map[string]string{"a.txt": "a"})

	res := runCLI(t, "-s", src, "-t", out, "--log-format", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var runIDs []string
	for _, line := range strings.Split(strings.TrimSpace(res.stderr), "\n") {
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &event), line)
		assert.Contains(t, event, "message")
		assert.Contains(t, event, "timestamp")
		if id, ok := event["run_id"].(string); ok {
			runIDs = append(runIDs, id)
		}
	}
	require.NotEmpty(t, runIDs)
	for _, id := range runIDs {
		assert.Equal(t, runIDs[0], id)
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`pattern: invoice
target_path: /srv/invoices
settings:
  collision: rename
  workers: 3
`), 0644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"config", "show", "--config", path, "-p", "receipt"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, `pattern:     "receipt"`, "flag overrides file")
	assert.Contains(t, out, "target_path: /srv/invoices")
	assert.Contains(t, out, "collision:   rename")
	assert.Contains(t, out, "workers:     3")
	assert.Contains(t, out, "fail_fast:   true")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	target := filepath.Join(t.TempDir(), "inbox")

	res := runCLI(t, "config", "init", path, "-t", target, "-c", "skip", "-x", "*.tmp")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "wrote "+path)

	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, target, cfg.TargetPath)
	assert.Equal(t, config.CollisionSkip, cfg.Settings.Collision)
	assert.Equal(t, []string{"*.tmp"}, cfg.Exclude)
	assert.Equal(t, config.DefaultSourcePath, cfg.SourcePath)

	res = runCLI(t, "config", "init", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = runCLI(t, "config", "init", path, "--force")
	assert.Equal(t, 0, res.code, res.stderr)
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "version")
	require.Equal(t, 0, res.code)
	assert.Equal(t, "gather dev\n", res.stdout)
}

func TestRenderSummary(t *testing.T) {
	report := &types.Report{
		Target:      "/out",
		Directories: []string{"/src", "/src/sub"},
		Units: []types.UnitResult{{
			Directory: "/src",
			Results: []types.MoveResult{
				{Move: types.Move{Source: "/src/a.txt", Destination: "/out/a.txt", Size: 2048}, Status: types.StatusMoved},
				{Move: types.Move{Source: "/src/b.txt", Destination: "/out/b.txt"}, Status: types.StatusSkipped, Detail: types.DetailExists},
				{Move: types.Move{Source: "/out/c.txt", Destination: "/out/c.txt"}, Status: types.StatusSkipped, Detail: types.DetailInPlace},
			},
		}},
	}

	var buf bytes.Buffer
	renderSummary(&buf, report, false)
	out := buf.String()

	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "/src/a.txt")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "destination exists")
	assert.Contains(t, out, "already in target")
	assert.Equal(t, 1, strings.Count(out, "destination exists"), "only the real collision says so")
	assert.Contains(t, out, "moved 1 file (2.0 kB) into /out, skipped 2, failed 0, directories 2")
	assert.NotContains(t, out, "\x1b[", "no escape codes without a terminal")
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, &types.Report{Target: "/out", DryRun: true}, false)
	assert.Equal(t, "would move 0 files (0 B) into /out, skipped 0, failed 0, directories 0\n", buf.String())
}

func TestShouldColorize(t *testing.T) {
	assert.False(t, shouldColorize(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, shouldColorize(f), "regular files are not terminals")
}
