package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lfx/internal/lastfm"
	"github.com/desertthunder/lfx/internal/repositories"
	"github.com/desertthunder/lfx/internal/shared"
	"github.com/desertthunder/lfx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	client  *lastfm.Client
	db      *sql.DB
	library *repositories.LibraryRepository
	users   *repositories.UserRepository
	engine  tasks.ScrobbleEngine
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Client *lastfm.Client
	DB     *sql.DB
	Engine tasks.ScrobbleEngine
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config: opts.Config,
		client: opts.Client,
		db:     opts.DB,
		engine: opts.Engine,
		logger: opts.Logger,
		output: opts.Output,
	}

	if r.db != nil {
		r.library = repositories.NewLibraryRepository(r.db)
		r.users = repositories.NewUserRepository(r.db)
	}

	if r.engine == nil && r.client != nil && r.library != nil {
		r.engine = tasks.NewImportEngine(
			tasks.LastFMSource{Client: r.client},
			r.library,
			tasks.ImportOpts{
				PauseEvery:      opts.Config.Import.PauseEvery,
				PauseFor:        opts.Config.Import.PauseDuration(),
				ResolveAttempts: opts.Config.Import.RetryCount,
				ResolveBackoff:  opts.Config.Import.RetryBackoff(),
			},
		)
	}

	return r
}

// SetLogger swaps the Runner's logger, e.g. to redirect logs to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, importCommand, browseCommand, exportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireClient guards commands that talk to the Last.fm API.
func (r *Runner) requireClient() error {
	if r.client == nil {
		return fmt.Errorf("%w: Last.fm credentials not configured, run 'lfx setup' and edit config.toml", shared.ErrMissingCredentials)
	}
	return nil
}

// requireDB guards commands that touch the local archive.
func (r *Runner) requireDB() error {
	if r.db == nil {
		return fmt.Errorf("%w: database not initialized, run 'lfx setup'", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
