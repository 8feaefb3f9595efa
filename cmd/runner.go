package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/repositories"
	"github.com/desertthunder/gmsync/internal/services"
	"github.com/desertthunder/gmsync/internal/shared"
	"github.com/desertthunder/gmsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	client *services.Client
	svc    services.Service
	logger *log.Logger
	output io.Writer
	quiet  bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Client *services.Client
	Svc    services.Service // overrides Client as the sync service when set
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
	if opts.Svc == nil {
		opts.Svc = opts.Client
	}

	return &Runner{
		config: opts.Config,
		client: opts.Client,
		svc:    opts.Svc,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the Runner's logger, used to redirect logs during TUI rendering.
func (r *Runner) SetLogger(l *log.Logger) { r.logger = l }

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downCommand, upCommand, setupCommand, authCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newEngine builds the sync engine, wiring the track cache and run
// recorder when the configured database exists. Callers must invoke the
// returned cleanup function.
func (r *Runner) newEngine() (tasks.SyncEngine, func(), error) {
	cleanup := func() {}

	if _, err := os.Stat(r.config.Database.Path); err != nil {
		r.logger.Debug("database not initialized, syncing without cache", "path", r.config.Database.Path)
		return tasks.NewEngine(r.svc, nil, nil), cleanup, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	cache := repositories.NewTrackCache(repositories.NewTrackRepository(db))
	recorder := repositories.NewSyncRunRepository(db)
	return tasks.NewEngine(r.svc, cache, recorder), func() { db.Close() }, nil
}

// authenticate loads cached credentials for the given name and
// authenticates the service client with them.
func (r *Runner) authenticate(ctx context.Context, cmd *cli.Command) error {
	path, err := services.CredentialPath(r.config.Credentials.Dir, cmd.String("cred"))
	if err != nil {
		return err
	}

	creds, err := services.LoadCredentials(path)
	if err != nil {
		return fmt.Errorf("%w (run 'gmsync auth login' first)", err)
	}

	deviceID := creds.DeviceID
	if deviceID == "" {
		deviceID = r.config.Credentials.DeviceID
	}

	return r.svc.Authenticate(ctx, map[string]string{
		"token":     creds.Token,
		"device_id": deviceID,
	})
}

// parseFilterFlags reads the shared include/exclude filter flags.
func parseFilterFlags(cmd *cli.Command) (include, exclude []library.FieldFilter, err error) {
	include, err = library.ParseFilters(cmd.StringSlice("include-filter"))
	if err != nil {
		return nil, nil, err
	}
	exclude, err = library.ParseFilters(cmd.StringSlice("exclude-filter"))
	if err != nil {
		return nil, nil, err
	}
	return include, exclude, nil
}

// parseExcludeFlags reads the path exclusion patterns.
func parseExcludeFlags(cmd *cli.Command) ([]*regexp.Regexp, error) {
	return library.ParseExcludePatterns(cmd.StringSlice("exclude-pattern"))
}

// applyVerbosity configures logging from the shared --log and --quiet flags.
func (r *Runner) applyVerbosity(cmd *cli.Command) error {
	if cmd.Bool("quiet") {
		r.quiet = true
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}
	if cmd.Bool("log") {
		fileLogger, err := shared.NewFileLogger("./tmp/gmsync.log")
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, log.DebugLevel)
		r.SetLogger(fileLogger)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
	if r.quiet {
		return nil
	}
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	if r.quiet {
		return nil
	}
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
