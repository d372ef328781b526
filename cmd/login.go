package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/zalepa/escolas/api"
	"github.com/zalepa/escolas/guard"
	"github.com/zalepa/escolas/session"
)

// Login implements the "login" subcommand: exchange email and password for
// a session token and keep it in the session file.
func Login(args []string) {
	creds := parseCredentials("login", "Sign in to the schools API.", args)
	e := setup()
	defer e.log.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	if err := login(ctx, e.client, e.tokens, creds); err != nil {
		if api.IsUnauthorized(err) {
			fmt.Fprintf(os.Stderr, "invalid email or password\n")
		} else {
			fmt.Fprintf(os.Stderr, "error signing in: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Printf("signed in as %s\n", creds.Email)
}

func login(ctx context.Context, c *api.Client, tokens session.Store, creds api.Credentials) error {
	tok, err := c.Login(ctx, creds)
	if err != nil {
		return err
	}
	return tokens.SetToken(tok)
}

// Register implements the "register" subcommand. It creates the account but
// does not sign in.
func Register(args []string) {
	creds := parseCredentials("register", "Create an account on the schools API.", args)
	e := setup()
	defer e.log.Sync()

	ctx, cancel := signalContext()
	defer cancel()
	if err := e.client.Register(ctx, creds); err != nil {
		fmt.Fprintf(os.Stderr, "error creating account: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("account created for %s; now run \"escolas login\"\n", creds.Email)
}

// Logout implements the "logout" subcommand.
func Logout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	e := setup()
	if err := e.tokens.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "error signing out: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("signed out")
}

// Status implements the "status" subcommand: report what the access guard
// would do with the dashboard right now.
func Status(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	e := setup()
	fmt.Println(statusLine(e.tokens, e.cfg.APIBaseURL))
}

func statusLine(tokens session.Store, baseURL string) string {
	_, ok := tokens.Token()
	d := guard.Decide(ok, guard.Dashboard)
	if d.Action == guard.Redirect {
		return fmt.Sprintf("not signed in (%s); dashboard would redirect to %s", baseURL, d.Target)
	}
	return fmt.Sprintf("signed in (%s); dashboard available", baseURL)
}

func parseCredentials(name, summary string, args []string) api.Credentials {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when omitted)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: escolas %s [email] [-password pw]\n\n%s\n\nFlags:\n", name, summary)
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() > 0 {
		*email = fs.Arg(0)
	}
	in := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(in, "Email: ")
	}
	if *password == "" {
		*password = promptPassword(in, "Password: ")
	}
	return api.Credentials{Email: strings.TrimSpace(*email), Password: *password}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Fprint(os.Stderr, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptPassword reads without echo when stdin is a terminal.
func promptPassword(in *bufio.Reader, label string) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, label)
	}
	fmt.Fprint(os.Stderr, label)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(pw)
}
