package organize_test

import (
	"io"
	"sync"
	"testing"

	"gather/internal/config"
	"gather/internal/errors"
	"gather/internal/log"
	"gather/internal/organize"
	"gather/pkg/testutils"
	"gather/pkg/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.NewLogger(log.WithOutput(io.Discard))
}

func newEngine(t *testing.T, fs afero.Fs, mutate func(*config.Config)) *organize.Engine {
	t.Helper()
	cfg := config.NewTestConfig("/src", "/out")
	if mutate != nil {
		mutate(cfg)
	}
	engine, err := organize.NewEngine(fs, cfg, quietLogger())
	require.NoError(t, err)
	return engine
}

func TestMoveFile(t *testing.T) {
	t.Run("moves and creates parent", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, fs, "/src", map[string]string{"a.txt": "a"})
		engine := newEngine(t, fs, func(c *config.Config) { c.TargetPath = "/out/deep/er" })

		res := engine.MoveFile(types.Move{Source: "/src/a.txt", Destination: engine.Destination("/src/a.txt")})
		require.NoError(t, res.Error)
		assert.Equal(t, types.StatusMoved, res.Status)
		assert.Equal(t, "/out/deep/er/a.txt", res.Destination)
		assert.False(t, testutils.Exists(t, fs, "/src/a.txt"))
		assert.Equal(t, "a", testutils.ReadString(t, fs, "/out/deep/er/a.txt"))
	})

	t.Run("same path is a no-op", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, fs, "/out", map[string]string{"a.txt": "a"})
		engine := newEngine(t, fs, nil)

		res := engine.MoveFile(types.Move{Source: "/out/a.txt", Destination: "/out/./a.txt"})
		assert.Equal(t, types.StatusSkipped, res.Status)
		assert.Equal(t, types.DetailInPlace, res.Detail)
		assert.True(t, testutils.Exists(t, fs, "/out/a.txt"))
	})

	t.Run("missing source", func(t *testing.T) {
		engine := newEngine(t, afero.NewMemMapFs(), nil)

		res := engine.MoveFile(types.Move{Source: "/src/gone.txt", Destination: "/out/gone.txt"})
		assert.Equal(t, types.StatusFailed, res.Status)
		assert.True(t, errors.IsKind(res.Error, errors.MoveFailed))
	})

	t.Run("directory source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/src/dir", 0755))
		engine := newEngine(t, fs, nil)

		res := engine.MoveFile(types.Move{Source: "/src/dir", Destination: "/out/dir"})
		assert.Equal(t, types.StatusFailed, res.Status)
		assert.Contains(t, res.Error.Error(), "not a regular file")
	})

	t.Run("dry run mutates nothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, fs, "/src", map[string]string{"a.txt": "a"})
		engine := newEngine(t, fs, func(c *config.Config) { c.Settings.DryRun = true })
		assert.True(t, engine.IsDryRun())

		res := engine.MoveFile(types.Move{Source: "/src/a.txt", Destination: "/out/a.txt"})
		assert.Equal(t, types.StatusPlanned, res.Status)
		assert.True(t, testutils.Exists(t, fs, "/src/a.txt"))
		assert.False(t, testutils.Exists(t, fs, "/out"))
	})

	t.Run("target cannot be created", func(t *testing.T) {
		base := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, base, "/src", map[string]string{"a.txt": "a"})
		engine := newEngine(t, afero.NewReadOnlyFs(base), nil)

		res := engine.MoveFile(types.Move{Source: "/src/a.txt", Destination: "/out/a.txt"})
		assert.Equal(t, types.StatusFailed, res.Status)
		assert.True(t, errors.IsKind(res.Error, errors.DirectoryCreateFailed))
		assert.Contains(t, res.Error.Error(), "/out")
	})

	t.Run("rename failure", func(t *testing.T) {
		base := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, base, "/src", map[string]string{"a.txt": "a"})
		fs := &faultyFs{Fs: base, failRename: map[string]bool{"/src/a.txt": true}}
		engine := newEngine(t, fs, nil)

		res := engine.MoveFile(types.Move{Source: "/src/a.txt", Destination: "/out/a.txt"})
		assert.Equal(t, types.StatusFailed, res.Status)
		assert.True(t, errors.IsKind(res.Error, errors.MoveFailed))
		assert.True(t, testutils.Exists(t, base, "/src/a.txt"))
	})
}

// A destination that appears after planning is caught when the move runs.
func TestMoveFileLateCollision(t *testing.T) {
	tests := []struct {
		collision  string
		wantStatus types.MoveStatus
		wantDest   string
		wantKind   errors.ErrorKind
	}{
		{collision: config.CollisionFail, wantStatus: types.StatusFailed, wantKind: errors.NameCollision},
		{collision: config.CollisionSkip, wantStatus: types.StatusSkipped},
		{collision: config.CollisionRename, wantStatus: types.StatusMoved, wantDest: "/out/a_(1).txt"},
	}

	for _, tt := range tests {
		t.Run(tt.collision, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			testutils.CreateTestFilesWithContent(t, fs, "/", map[string]string{
				"src/a.txt": "new",
				"out/a.txt": "existing",
			})
			engine := newEngine(t, fs, func(c *config.Config) { c.Settings.Collision = tt.collision })

			res := engine.MoveFile(types.Move{Source: "/src/a.txt", Destination: "/out/a.txt"})
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, "existing", testutils.ReadString(t, fs, "/out/a.txt"), "existing file is never overwritten")
			if tt.wantKind != errors.Unknown {
				assert.True(t, errors.IsKind(res.Error, tt.wantKind))
			}
			if tt.wantStatus == types.StatusSkipped {
				assert.Equal(t, types.DetailExists, res.Detail)
			}
			if tt.wantDest != "" {
				assert.Equal(t, tt.wantDest, res.Destination)
				assert.Equal(t, "new", testutils.ReadString(t, fs, tt.wantDest))
			}
		})
	}
}

// One move is renamed onto a_(1).txt late while another move targets that
// name directly. Whichever runs first, neither may overwrite the other.
func TestMoveFileLateRenameRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		fs := afero.NewMemMapFs()
		testutils.CreateTestFilesWithContent(t, fs, "/", map[string]string{
			"out/a.txt":       "existing",
			"src/x/a.txt":     "x",
			"src/y/a_(1).txt": "y",
		})
		engine := newEngine(t, fs, func(c *config.Config) { c.Settings.Collision = config.CollisionRename })

		moves := []types.Move{
			{Source: "/src/x/a.txt", Destination: "/out/a.txt"},
			{Source: "/src/y/a_(1).txt", Destination: "/out/a_(1).txt"},
		}
		results := make([]types.MoveResult, len(moves))
		var wg sync.WaitGroup
		for j, mv := range moves {
			j, mv := j, mv
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[j] = engine.MoveFile(mv)
			}()
		}
		wg.Wait()

		for _, res := range results {
			require.Equal(t, types.StatusMoved, res.Status, res.Error)
		}
		assert.NotEqual(t, results[0].Destination, results[1].Destination)

		out := testutils.Snapshot(t, fs, "/out")
		contents := make([]string, 0, len(out))
		for _, content := range out {
			contents = append(contents, content)
		}
		require.ElementsMatch(t, []string{"existing", "x", "y"}, contents, "iteration %d: %v", i, out)
	}
}

func TestOrganizeFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutils.CreateTestFilesWithContent(t, fs, "/src", map[string]string{
		"invoice-1.pdf": "1",
		"notes.md":      "n",
	})
	engine := newEngine(t, fs, func(c *config.Config) { c.Pattern = "invoice" })

	res, ok := engine.OrganizeFile("/src/invoice-1.pdf")
	require.True(t, ok)
	assert.Equal(t, types.StatusMoved, res.Status)
	assert.Equal(t, "/out/invoice-1.pdf", res.Destination)

	_, ok = engine.OrganizeFile("/src/notes.md")
	assert.False(t, ok, "non-matching file is ignored")

	_, ok = engine.OrganizeFile("/src/missing-invoice.pdf")
	assert.False(t, ok, "vanished file is ignored")
}

func TestNewEngineRejectsBadExclude(t *testing.T) {
	cfg := config.NewTestConfig("/src", "/out")
	cfg.Exclude = []string{"[bad"}
	_, err := organize.NewEngine(afero.NewMemMapFs(), cfg, quietLogger())
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}
