package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lfx/internal/lastfm"
	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
	"github.com/desertthunder/lfx/internal/tasks"
	tu "github.com/desertthunder/lfx/internal/testing"
)

// stubEngine is a canned ScrobbleEngine for command tests.
type stubEngine struct {
	result *tasks.ImportResult
	err    error
}

func (s *stubEngine) Import(ctx context.Context, user string, progress chan<- tasks.ProgressUpdate) (*tasks.ImportResult, error) {
	return s.result, s.err
}

// newTestRunner builds a Runner over an in-memory archive.
func newTestRunner(t *testing.T, engine tasks.ScrobbleEngine) (*Runner, *bytes.Buffer) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		Client: lastfm.NewClient(lastfm.ClientOpts{APIKey: "key", APISecret: "secret"}),
		DB:     db,
		Engine: engine,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
	return runner, output
}

// seedArchive creates a user with one archived scrobble.
func seedArchive(t *testing.T, r *Runner) {
	t.Helper()

	if _, err := r.users.Create("rj", "hunter2", "sess", false); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	artist := models.MBID("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	track := models.MBID("cccccccc-cccc-cccc-cccc-cccccccccccc")
	if err := r.library.UpsertArtist(artist, "Boards of Canada"); err != nil {
		t.Fatalf("failed to seed artist: %v", err)
	}
	if err := r.library.UpsertTrack(track, "Roygbiv", artist, nil, 151*time.Second); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}
	if err := r.library.AddScrobble("rj", 1700000300, track); err != nil {
		t.Fatalf("failed to seed scrobble: %v", err)
	}
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "lfx", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"lfx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("wires the engine when client and database are present", func(t *testing.T) {
			runner, _ := newTestRunner(t, nil)
			if runner.engine == nil {
				t.Error("expected engine to be constructed")
			}
			if runner.library == nil || runner.users == nil {
				t.Error("expected repositories to be constructed")
			}
		})

		t.Run("leaves the engine nil without a client", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.engine != nil {
				t.Error("expected no engine without a client")
			}
		})
	})

	t.Run("guards", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: io.Discard, Logger: shared.NewLogger(io.Discard)})

		if err := runner.requireClient(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if err := runner.requireDB(); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestWriteHelpers(t *testing.T) {
	t.Run("writeJSON pretty prints", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]int{"imported": 3}, true); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}
		if !strings.Contains(output.String(), "\"imported\": 3") {
			t.Errorf("expected indented JSON, got %s", output.String())
		}
	})

	t.Run("writeJSON surfaces writer failures", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writeJSON(map[string]int{}, false); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("writeJSON surfaces newline failures", func(t *testing.T) {
		writer := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
		runner := NewRunner(RunnerOpts{Output: &writer})
		if err := runner.writeJSON(map[string]int{}, false); err == nil {
			t.Error("expected newline write error")
		}
	})

	t.Run("writePlain surfaces writer failures", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("hello"); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestImportCommand(t *testing.T) {
	t.Run("prints the result summary", func(t *testing.T) {
		engine := &stubEngine{result: &tasks.ImportResult{
			Seen: 3, Imported: 1, SkippedInvalid: 1, SkippedUnknownDuration: 1, LastTimestamp: 300,
		}}
		runner, output := newTestRunner(t, engine)

		if err := runCommand(t, runner, "import", "--user", "rj"); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Import Complete") {
			t.Errorf("missing summary header, got: %s", out)
		}
		if !strings.Contains(out, "Scrobbles archived: 1") {
			t.Errorf("missing archive count, got: %s", out)
		}
	})

	t.Run("emits JSON with --json", func(t *testing.T) {
		engine := &stubEngine{result: &tasks.ImportResult{Imported: 2}}
		runner, output := newTestRunner(t, engine)

		if err := runCommand(t, runner, "import", "--user", "rj", "--json"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(output.String(), "\"Imported\": 2") {
			t.Errorf("expected JSON summary, got: %s", output.String())
		}
	})

	t.Run("notes when the stream ended early", func(t *testing.T) {
		engine := &stubEngine{result: &tasks.ImportResult{Imported: 7, Aborted: true}}
		runner, output := newTestRunner(t, engine)

		if err := runCommand(t, runner, "import", "--user", "rj"); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(output.String(), "ended early") {
			t.Errorf("expected resume hint, got: %s", output.String())
		}
	})

	t.Run("reports partial progress on failure", func(t *testing.T) {
		engine := &stubEngine{
			result: &tasks.ImportResult{Imported: 4},
			err:    errors.New("upstream hiccup"),
		}
		runner, output := newTestRunner(t, engine)

		if err := runCommand(t, runner, "import", "--user", "rj"); err == nil {
			t.Fatal("expected import error")
		}
		if !strings.Contains(output.String(), "archived 4 scrobbles") {
			t.Errorf("expected partial progress note, got: %s", output.String())
		}
	})
}

func TestBrowseCommand(t *testing.T) {
	t.Run("lists archived scrobbles", func(t *testing.T) {
		runner, output := newTestRunner(t, &stubEngine{})
		seedArchive(t, runner)

		if err := runCommand(t, runner, "browse", "--user", "rj"); err != nil {
			t.Fatalf("browse failed: %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Found 1 scrobbles") {
			t.Errorf("missing count line, got: %s", out)
		}
		if !strings.Contains(out, "Boards of Canada - Roygbiv") {
			t.Errorf("missing scrobble line, got: %s", out)
		}
	})

	t.Run("empty archive", func(t *testing.T) {
		runner, output := newTestRunner(t, &stubEngine{})
		seedArchive(t, runner)

		if err := runCommand(t, runner, "browse", "--user", "rj", "--match", "nothing"); err != nil {
			t.Fatalf("browse failed: %v", err)
		}
		if !strings.Contains(output.String(), "No scrobbles found") {
			t.Errorf("expected empty message, got: %s", output.String())
		}
	})
}

func TestExportCommand(t *testing.T) {
	t.Run("writes the export file", func(t *testing.T) {
		runner, output := newTestRunner(t, &stubEngine{})
		seedArchive(t, runner)

		path := filepath.Join(t.TempDir(), "history.csv")
		if err := runCommand(t, runner, "export", "--user", "rj", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Roygbiv") {
			t.Error("export missing scrobble data")
		}
		if !strings.Contains(output.String(), "Exported 1 scrobbles") {
			t.Errorf("missing confirmation, got: %s", output.String())
		}
	})

	t.Run("refuses to export nothing", func(t *testing.T) {
		runner, _ := newTestRunner(t, &stubEngine{})
		seedArchive(t, runner)

		err := runCommand(t, runner, "export", "--user", "rj", "--match", "nothing")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
