// Package cli wires every vbsocial command into one cobra tree.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/auth"
	"github.com/vbsocial/vbsocial/internal/config"
	"github.com/vbsocial/vbsocial/internal/credstore"
	"github.com/vbsocial/vbsocial/internal/httpx"
	"github.com/vbsocial/vbsocial/internal/platform/youtube"
	"github.com/vbsocial/vbsocial/internal/tracker"
	"github.com/vbsocial/vbsocial/internal/ui/styles"
	"github.com/vbsocial/vbsocial/internal/version"
)

// App carries shared state for every command: resolved configuration, the
// credential store and one HTTP client.
type App struct {
	cfg    *config.Config
	store  *credstore.Store
	http   *http.Client
	stdout io.Writer
	stderr io.Writer
	stdin  *bufio.Reader
}

// New builds the root command over the given configuration.
func New(cfg *config.Config) *cobra.Command {
	app := &App{
		cfg:    cfg,
		store:  credstore.New(cfg.BaseDir),
		http:   httpx.New(cfg.HTTPTimeout),
		stdout: os.Stdout,
		stderr: os.Stderr,
		stdin:  bufio.NewReader(os.Stdin),
	}
	return app.rootCmd()
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vbsocial",
		Short:         "Post physics content to every social platform from one CLI",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		a.instagramCmd(),
		a.facebookCmd(),
		a.linkedinCmd(),
		a.xCmd(),
		a.youtubeCmd(),
		a.datamodelCmd(),
		a.statsCmd(),
		a.postAllCmd(),
		a.trackerCmd(),
	)

	return root
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func (a *App) println(s string) {
	fmt.Fprintln(a.stdout, s)
}

func (a *App) success(s string) {
	fmt.Fprintln(a.stdout, styles.SuccessStyle.Render("✓ "+s))
}

func (a *App) info(s string) {
	fmt.Fprintln(a.stdout, styles.InfoStyle.Render(s))
}

func (a *App) warn(s string) {
	fmt.Fprintln(a.stderr, styles.WarningStyle.Render("! "+s))
}

func (a *App) title(s string) {
	fmt.Fprintln(a.stdout, styles.TitleStyle.Render(s))
}

// progress returns the step callback passed to platform clients.
func (a *App) progress() func(string) {
	return func(s string) { a.info("  " + s) }
}

// prompt reads one line of input after showing a styled label.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.stdout, styles.PromptStyle.Render(label+": "))
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptRequired keeps asking until the answer is non-empty.
func (a *App) promptRequired(label string) (string, error) {
	for {
		value, err := a.prompt(label)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		a.warn("a value is required")
	}
}

func (a *App) instagramAuth() *auth.Graph {
	return auth.NewGraph(a.http, a.store, credstore.PlatformInstagram)
}

func (a *App) facebookAuth() *auth.Graph {
	return auth.NewGraph(a.http, a.store, credstore.PlatformFacebook)
}

func (a *App) linkedinAuth() *auth.LinkedIn {
	return auth.NewLinkedIn(a.http, a.store, a.cfg.LinkedInClientID, a.cfg.LinkedInClientSecret)
}

func (a *App) xAuth() *auth.X {
	return auth.NewX(a.http, a.store, a.cfg.XClientID, a.cfg.XClientSecret)
}

func (a *App) youtubeAuth() *auth.YouTube {
	return auth.NewYouTube(a.http, a.store)
}

func (a *App) youtubeClient() *youtube.Client {
	return youtube.New(a.http, a.youtubeAuth(), a.progress())
}

// trackerManager opens the post tracker rooted at the configured DB path.
func (a *App) trackerManager() (*tracker.Manager, error) {
	return tracker.NewManager(filepath.Dir(a.cfg.TrackerDBPath))
}

// Execute runs the CLI and returns the process exit code. Errors are
// printed styled to stderr.
func Execute() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("✗ "+err.Error()))
		return 1
	}

	if err := New(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("✗ "+err.Error()))
		return 1
	}
	return 0
}
