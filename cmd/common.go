package cmd

import (
	"context"
	"fmt"
	"html"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zalepa/escolas/api"
	"github.com/zalepa/escolas/config"
	"github.com/zalepa/escolas/guard"
	"github.com/zalepa/escolas/loader"
	"github.com/zalepa/escolas/session"
)

// errNotSignedIn is what the CLI reports where the browser would be
// redirected to the login view.
var errNotSignedIn = errors.New("not signed in; run \"escolas login\" first")

type env struct {
	cfg    *config.Config
	log    *zap.Logger
	tokens *session.File
	client *api.Client
}

// setup loads config and builds the logger, session store and API client
// shared by all subcommands. Errors are fatal.
func setup() *env {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building logger: %v\n", err)
		os.Exit(1)
	}
	tokens := session.NewFile(cfg.SessionFile)
	return &env{
		cfg:    cfg,
		log:    log,
		tokens: tokens,
		client: api.New(cfg.APIBaseURL, tokens, api.WithTimeout(cfg.RequestTimeout)),
	}
}

// signalContext is cancelled on SIGINT/SIGTERM, which tears down any loader
// bound to it.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadDashboard is the CLI's view mount: check the session, then activate a
// loader and wait for it. Without a token it returns errNotSignedIn and no
// request is made. A failed fetch is not an error here; it shows up as
// State.Failed with empty data, already logged by the loader.
func loadDashboard(ctx context.Context, tokens session.Store, f loader.Fetcher, log *zap.Logger) (loader.State, error) {
	_, ok := tokens.Token()
	if d := guard.Decide(ok, guard.Dashboard); d.Action == guard.Redirect {
		return loader.State{}, errNotSignedIn
	}

	l := loader.New(f, log)
	if err := l.Activate(ctx); err != nil {
		return loader.State{}, err
	}
	defer l.Teardown()
	if err := l.Wait(ctx); err != nil {
		return loader.State{}, errors.Wrap(err, "interrupted while loading")
	}
	return l.State(), nil
}

// mustLoadDashboard runs loadDashboard for a subcommand, exiting on error.
func mustLoadDashboard(e *env) loader.State {
	ctx, cancel := signalContext()
	defer cancel()
	st, err := loadDashboard(ctx, e.tokens, e.client, e.log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if st.Failed {
		fmt.Fprintf(os.Stderr, "warning: could not load schools, showing an empty dashboard\n")
	}
	return st
}

var plainText = bluemonday.StrictPolicy()

// displayText strips any markup from a string supplied by the remote API
// before it reaches a terminal or PDF. The policy escapes what it keeps, so
// entities are decoded again for plain-text output.
func displayText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// reorderArgs moves positional arguments to the end so that Go's flag package
// can parse all flags regardless of where a positional argument appears.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			// Consume the next arg as the flag's value unless it looks like a flag itself.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") && !strings.Contains(args[i], "=") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
