package launcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config describes the backend and frontend the launcher starts
type Config struct {
	BackendDir   string
	FrontendDir  string
	BackendPort  int
	FrontendPort int
	// BackendCmd is split on whitespace, e.g. "go run ."
	BackendCmd string

	BackendAttempts  int
	FrontendAttempts int
	PollInterval     time.Duration

	// Out receives launcher messages and child output
	Out io.Writer
}

// DefaultConfig returns the development defaults
func DefaultConfig() Config {
	return Config{
		BackendDir:       ".",
		FrontendDir:      "frontend",
		BackendPort:      8000,
		FrontendPort:     3000,
		BackendCmd:       "go run .",
		BackendAttempts:  10,
		FrontendAttempts: 20,
		PollInterval:     time.Second,
		Out:              os.Stdout,
	}
}

// BackendURL is where the API listens
func (c Config) BackendURL() string {
	return fmt.Sprintf("http://localhost:%d", c.BackendPort)
}

// FrontendURL is where the dev server listens
func (c Config) FrontendURL() string {
	return fmt.Sprintf("http://localhost:%d", c.FrontendPort)
}

// Runner starts the backend and frontend and supervises them
type Runner struct {
	config Config
}

func NewRunner(config Config) *Runner {
	if config.Out == nil {
		config.Out = io.Discard
	}
	return &Runner{config: config}
}

// Run blocks until ctx is cancelled or a child exits. Only the children
// started here are terminated on the way out.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.config

	if err := checkDir(cfg.BackendDir); err != nil {
		return fmt.Errorf("backend directory: %w", err)
	}
	argv := strings.Fields(cfg.BackendCmd)
	if len(argv) == 0 {
		return fmt.Errorf("backend command is empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(cfg.Out, "Starting backend: %s (in %s)\n", cfg.BackendCmd, cfg.BackendDir)
	backend, err := StartProcess(runCtx, "backend", cfg.BackendDir,
		[]string{fmt.Sprintf("PORT=%d", cfg.BackendPort)}, cfg.Out, argv...)
	if err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	backendPoller := NewPoller(cfg.BackendAttempts, cfg.PollInterval)
	if err := backendPoller.Wait(runCtx, cfg.BackendURL()+"/health", backend.Exited()); err != nil {
		r.report(backend)
		cancel()
		_ = backend.Wait()
		return fmt.Errorf("backend failed to start: %w", err)
	}
	fmt.Fprintf(cfg.Out, "Backend ready at %s\n", cfg.BackendURL())

	if err := checkFrontend(cfg.FrontendDir); err != nil {
		cancel()
		_ = backend.Wait()
		return err
	}

	fmt.Fprintf(cfg.Out, "Starting frontend in %s\n", cfg.FrontendDir)
	frontend, err := StartProcess(runCtx, "frontend", cfg.FrontendDir,
		[]string{"BROWSER=none", "FAST_REFRESH=true", fmt.Sprintf("PORT=%d", cfg.FrontendPort)},
		cfg.Out, "npm", "start", "--no-cache")
	if err != nil {
		cancel()
		_ = backend.Wait()
		return fmt.Errorf("failed to start frontend: %w", err)
	}

	frontendPoller := NewPoller(cfg.FrontendAttempts, cfg.PollInterval)
	if err := frontendPoller.Wait(runCtx, cfg.FrontendURL(), frontend.Exited()); err != nil {
		r.report(frontend)
		cancel()
		_ = frontend.Wait()
		_ = backend.Wait()
		return fmt.Errorf("frontend failed to start: %w", err)
	}

	fmt.Fprintf(cfg.Out, "\nBackend:  %s\nFrontend: %s\nPress Ctrl+C to stop both servers\n", cfg.BackendURL(), cfg.FrontendURL())

	g := new(errgroup.Group)
	for _, p := range []*Process{backend, frontend} {
		g.Go(func() error {
			err := p.Wait()
			stopped := runCtx.Err() != nil
			log.Printf("[Launcher] %s exited", p.Name)
			// One child going away takes the other with it
			cancel()
			if err != nil && !stopped {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			return nil
		})
	}

	err = g.Wait()
	fmt.Fprintln(cfg.Out, "Servers stopped")
	return err
}

func (r *Runner) report(p *Process) {
	fmt.Fprintf(r.config.Out, "%s output:\n%s\n", p.Name, p.Output())
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// checkFrontend requires an installed frontend
func checkFrontend(dir string) error {
	if err := checkDir(dir); err != nil {
		return fmt.Errorf("frontend directory: %w", err)
	}
	if err := checkDir(filepath.Join(dir, "node_modules")); err != nil {
		return fmt.Errorf("frontend dependencies missing in %s, run 'npm install' there first: %w", dir, err)
	}
	return nil
}
