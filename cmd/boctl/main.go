// Package main implements boctl, the operator console for the backoffice
// service. It drives the same REST surface the web console uses, through
// the classified client pipeline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/client"
	"github.com/opsdeck/backoffice/internal/errdefs"
	"github.com/opsdeck/backoffice/internal/logging"
	"github.com/opsdeck/backoffice/internal/session"
)

// Exit codes: 1 generic failure, 2 usage, 3 authentication.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
	exitAuth  = 3
)

const defaultServer = "http://localhost:9999"

func main() {
	os.Exit(run(os.Args[1:]))
}

// console carries the wiring every subcommand needs.
type console struct {
	api  *client.Client
	sess *session.Store
	json bool
	out  io.Writer
	log  zerolog.Logger
}

func run(args []string) int {
	fs := flag.NewFlagSet("boctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	server := fs.String("server", envOr("BOCTL_SERVER", defaultServer), "Server base URL")
	jsonOut := fs.Bool("json", false, "Print raw JSON instead of tables")
	verbose := fs.Bool("verbose", false, "Debug logging to stderr")
	fs.Usage = func() { printUsage(os.Stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(os.Stderr)
		return exitUsage
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	log := logging.New("boctl", level, true)

	sessPath, err := session.DefaultPath()
	if err != nil {
		cli.Error("resolve session path: " + err.Error())
		return exitError
	}
	sess, err := session.Open(sessPath)
	if err != nil {
		cli.Error("open session: " + err.Error())
		return exitError
	}

	// The one registered auth side effect: wipe the stored session. Clear
	// reports whether this call did the wipe, so concurrent failures print
	// the hint once.
	handler := errdefs.NewHandler(log)
	handler.Register(errdefs.KindAuth, func(e *errdefs.Error) {
		if cleared, _ := sess.Clear(); cleared {
			cli.Warning("session is no longer valid; run `boctl login`")
		}
	})

	c := &console{
		api: client.New(client.Options{
			BaseURL: *server,
			Tokens:  sess.Token,
			Handler: handler,
			Log:     log,
		}),
		sess: sess,
		json: *jsonOut,
		out:  os.Stdout,
		log:  log,
	}

	ctx := context.Background()
	cmd, cmdArgs := rest[0], rest[1:]

	var cmdErr error
	switch cmd {
	case "login":
		cmdErr = c.cmdLogin(ctx, cmdArgs)
	case "logout":
		cmdErr = c.cmdLogout(ctx)
	case "whoami":
		cmdErr = c.cmdWhoami(ctx)
	case "status":
		cmdErr = c.cmdStatus(ctx)
	case "menu":
		cmdErr = c.cmdMenu(ctx, cmdArgs)
	case "user":
		cmdErr = c.cmdUser(ctx, cmdArgs)
	case "role":
		cmdErr = c.cmdRole(ctx, cmdArgs)
	case "api":
		cmdErr = c.cmdApi(ctx, cmdArgs)
	case "dept":
		cmdErr = c.cmdDept(ctx, cmdArgs)
	case "auditlog":
		cmdErr = c.cmdAuditlog(ctx, cmdArgs)
	case "product":
		cmdErr = c.cmdProduct(ctx, cmdArgs)
	case "category":
		cmdErr = c.cmdCategory(ctx, cmdArgs)
	case "upload":
		cmdErr = c.cmdUpload(ctx, cmdArgs)
	case "completion":
		cmdErr = cmdCompletion(cmdArgs)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		cli.Error("unknown command: " + cmd)
		printUsage(os.Stderr)
		return exitUsage
	}

	return exitCode(cmdErr)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var uerr usageError
	if errors.As(err, &uerr) {
		cli.Error(uerr.Error())
		if uerr.usage != "" {
			fmt.Fprintln(os.Stderr, "usage: "+uerr.usage)
		}
		return exitUsage
	}
	if errdefs.IsKind(err, errdefs.KindAuth) {
		cli.Error(err.Error())
		cli.Info("authenticate with `boctl login --username <name>`")
		return exitAuth
	}
	cli.Error(err.Error())
	return exitError
}

// usageError marks bad invocations so they exit 2 instead of 1.
type usageError struct {
	msg   string
	usage string
}

func (e usageError) Error() string { return e.msg }

func usagef(usage, format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...), usage: usage}
}

// guard refuses guarded commands before any request leaves the machine.
func (c *console) guard() error {
	return c.sess.Guard()
}

// emit prints v as indented JSON under --json, otherwise calls render.
func (c *console) emit(v any, render func()) error {
	if c.json {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render()
	return nil
}

// pageFooter prints the list totals line under a table.
func (c *console) pageFooter(shown int, page client.Page) {
	if page.Total > shown {
		fmt.Fprintf(c.out, "showing %d of %d (page %d, page size %d)\n",
			shown, page.Total, page.Page, page.PageSize)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cmdCompletion(args []string) error {
	const usage = "boctl completion <bash|zsh|fish> [--install]"
	if len(args) == 0 {
		return usagef(usage, "missing shell name")
	}
	shell := args[0]
	if len(args) > 1 && args[1] == "--install" {
		return cli.InstallCompletion(shell)
	}
	return cli.GenerateCompletion(shell)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, strings.TrimLeft(`
boctl - backoffice operator console

Usage:
  boctl [--server URL] [--json] [--verbose] <command> [args]

Session:
  login --username NAME [--password PW]   authenticate and store the session
  logout                                  revoke the token and clear the session
  whoami                                  show the logged-in operator
  status                                  show server health
  menu                                    show your permission menu tree

Resources (list|get|create|update|delete plus resource verbs):
  user      operator accounts (+ reset-password)
  role      roles and grants (+ grant)
  menu      permission menus
  api       grantable API routes (+ refresh, tags)
  dept      departments
  auditlog  audit trail (list, delete, batch-delete, clear, export, stats, tail)
  product   catalog products (+ status)
  category  catalog categories
  upload    upload image FILE

Other:
  completion <bash|zsh|fish> [--install]  shell completion
  help                                    this text

Environment:
  BOCTL_SERVER  default --server value (currently %q)
`, "\n"), defaultServer)
}
