package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/client"
)

func (c *console) cmdAuditlog(ctx context.Context, args []string) error {
	const usage = "boctl auditlog <list|delete|batch-delete|clear|export|stats|tail> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("auditlog list", flag.ContinueOnError)
		opts := client.AuditListOptions{}
		fs.StringVar(&opts.Username, "username", "", "filter by operator")
		fs.StringVar(&opts.Module, "module", "", "filter by module")
		fs.StringVar(&opts.Method, "method", "", "filter by HTTP method")
		fs.StringVar(&opts.Summary, "summary", "", "filter by summary substring")
		fs.IntVar(&opts.Status, "status", 0, "filter by response status")
		fs.StringVar(&opts.OperationType, "op", "", "filter by operation type")
		fs.StringVar(&opts.LogLevel, "level", "", "filter by log level")
		since := fs.Duration("since", 0, "only entries newer than this (e.g. 24h)")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *since > 0 {
			opts.StartTime = time.Now().Add(-*since)
		}
		entries, page, err := c.api.AuditLogs.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(entries, func() {
			renderAuditTable(c, entries)
			c.pageFooter(len(entries), page)
		})

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.AuditLogs.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("audit entry %d deleted", id))
		return nil

	case "batch-delete":
		fs := flag.NewFlagSet("auditlog batch-delete", flag.ContinueOnError)
		ids := fs.String("ids", "", "comma-separated entry ids")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		list, err := parseIDs(*ids)
		if err != nil || len(list) == 0 {
			return usagef(usage, "missing or bad --ids")
		}
		n, err := c.api.AuditLogs.BatchDelete(ctx, list)
		if err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("%d audit entries deleted", n))
		return nil

	case "clear":
		fs := flag.NewFlagSet("auditlog clear", flag.ContinueOnError)
		days := fs.Int("days", 0, "only clear entries older than this many days (0 clears everything)")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		n, err := c.api.AuditLogs.Clear(ctx, *days)
		if err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("%d audit entries cleared", n))
		return nil

	case "export":
		fs := flag.NewFlagSet("auditlog export", flag.ContinueOnError)
		opts := client.AuditListOptions{}
		fs.StringVar(&opts.Username, "username", "", "filter by operator")
		fs.StringVar(&opts.Module, "module", "", "filter by module")
		fs.StringVar(&opts.Method, "method", "", "filter by HTTP method")
		fs.IntVar(&opts.Status, "status", 0, "filter by response status")
		since := fs.Duration("since", 0, "only entries newer than this (e.g. 24h)")
		out := fs.String("out", "", "write to this file instead of a generated name")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *since > 0 {
			opts.StartTime = time.Now().Add(-*since)
		}
		return c.auditExport(ctx, opts, *out)

	case "stats":
		stats, err := c.api.AuditLogs.Stats(ctx)
		if err != nil {
			return err
		}
		return c.emit(stats, func() {
			fmt.Fprintf(c.out, "total entries    %d\n", stats.Total)
			fmt.Fprintf(c.out, "last 24h         %d\n", stats.Last24hEntries)
			fmt.Fprintf(c.out, "errors           %d\n", stats.ErrorCount)
			fmt.Fprintf(c.out, "avg response     %.1f ms\n", stats.AvgResponseMs)
			renderCountMap(c, "by method", stats.ByMethod)
			renderCountMap(c, "by module", stats.ByModule)
			renderCountMap(c, "by level", stats.ByLogLevel)
		})

	case "tail":
		return c.auditTail(ctx)

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

// auditExport downloads the matching entries as CSV. With no --out the
// server-suggested file name lands in the working directory.
func (c *console) auditExport(ctx context.Context, opts client.AuditListOptions, path string) error {
	var buf bytes.Buffer
	name, err := c.api.AuditLogs.Export(ctx, opts, &buf)
	if err != nil {
		return err
	}
	if path == "" {
		path = name
	}
	if path == "" {
		path = "auditlog_export.csv"
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	cli.Success(fmt.Sprintf("audit trail exported to %s", path))
	return nil
}

// auditTail streams live entries until interrupted.
func (c *console) auditTail(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	tail, err := c.api.AuditLogs.Tail(ctx)
	if err != nil {
		return err
	}
	defer tail.Close()
	cli.Info("tailing audit trail, interrupt to stop")

	// The read loop owns the connection; closing it on ctx.Done unblocks
	// Next.
	go func() {
		<-ctx.Done()
		tail.Close()
	}()

	for {
		entry, err := tail.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("audit stream: %w", err)
		}
		if c.json {
			if err := c.emit(entry, nil); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(c.out, "%s  %-6s %-28s %3d  %s %s\n",
			entry.CreatedAt.Local().Format("15:04:05"),
			entry.Method, entry.Path, entry.Status,
			entry.Username, cli.Colorize(entry.Summary, cli.ColorDim))
	}
}

func renderAuditTable(c *console, entries []admin.AuditLog) {
	tbl := cli.NewTable("ID", "TIME", "USER", "METHOD", "PATH", "STATUS", "MS", "SUMMARY")
	for _, e := range entries {
		tbl.AddRow(
			fmt.Sprint(e.ID),
			e.CreatedAt.Local().Format("01-02 15:04:05"),
			e.Username, e.Method, e.Path,
			fmt.Sprint(e.Status), fmt.Sprint(e.ResponseTime), e.Summary,
		)
	}
	tbl.Render()
}

func renderCountMap(c *console, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(c.out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(c.out, "  %-12s %d\n", k, counts[k])
	}
}
