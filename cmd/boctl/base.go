package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/menu"
	"github.com/opsdeck/backoffice/internal/session"
)

func (c *console) cmdLogin(ctx context.Context, args []string) error {
	const usage = "boctl login --username NAME [--password PW]"
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return usagef(usage, "%v", err)
	}
	if *username == "" {
		return usagef(usage, "missing --username")
	}
	if *password == "" {
		fmt.Fprintf(os.Stderr, "password for %s: ", *username)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	spin := cli.NewSpinner("authenticating")
	spin.Start()
	pair, err := c.api.Base.Login(ctx, *username, *password)
	if err != nil {
		spin.Stop()
		return err
	}
	if err := c.sess.SetTokens(pair.AccessToken, pair.RefreshToken); err != nil {
		spin.Stop()
		return fmt.Errorf("store session: %w", err)
	}

	// Cache the profile so whoami works offline.
	if info, err := c.api.Base.UserInfo(ctx); err == nil {
		_ = c.sess.SetUser(session.UserInfo{
			ID:          info.ID,
			Username:    info.Username,
			Email:       info.Email,
			IsSuperuser: info.IsSuperuser,
			Roles:       info.RoleNames(),
		})
	}
	spin.Succeed(fmt.Sprintf("logged in as %s (token expires %s)",
		pair.Username, pair.ExpiresAt.Local().Format("2006-01-02 15:04")))
	return nil
}

func (c *console) cmdLogout(ctx context.Context) error {
	if c.sess.Token() == "" {
		cli.Info("not logged in")
		return nil
	}
	// Best effort: revoke server-side, clear locally regardless.
	if err := c.api.Base.Logout(ctx); err != nil {
		c.log.Debug().Err(err).Msg("server-side logout failed")
	}
	if cleared, err := c.sess.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	} else if cleared {
		cli.Success("logged out")
	}
	return nil
}

func (c *console) cmdWhoami(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	info, err := c.api.Base.UserInfo(ctx)
	if err != nil {
		// Fall back to the cached profile when the server is unreachable.
		if cached, ok := c.sess.User(); ok {
			cli.Warning("server unreachable, showing cached profile")
			return c.emit(cached, func() {
				fmt.Fprintf(c.out, "%s (id %d, roles: %s)\n",
					cached.Username, cached.ID, strings.Join(cached.Roles, ", "))
			})
		}
		return err
	}
	return c.emit(info, func() {
		tbl := cli.NewTable("FIELD", "VALUE")
		tbl.AddRow("id", fmt.Sprint(info.ID))
		tbl.AddRow("username", info.Username)
		tbl.AddRow("email", info.Email)
		tbl.AddRow("superuser", fmt.Sprint(info.IsSuperuser))
		tbl.AddRow("roles", strings.Join(info.RoleNames(), ", "))
		if info.LastLogin != nil {
			tbl.AddRow("last login", info.LastLogin.Local().Format("2006-01-02 15:04:05"))
		}
		tbl.Render()
	})
}

func (c *console) cmdStatus(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	stats, err := c.api.Base.Health(ctx)
	if err != nil {
		return err
	}
	return c.emit(stats, func() {
		fmt.Fprintf(c.out, "server   %s\n", c.api.BaseURL())
		fmt.Fprintf(c.out, "host     %s (%s)\n", stats.Hostname, stats.Platform)
		fmt.Fprintf(c.out, "uptime   %s\n", cli.FormatDuration(secondsToDuration(stats.UptimeSeconds)))
		fmt.Fprintf(c.out, "cpu      %.1f%%\n", stats.CPUPercent)
		fmt.Fprintf(c.out, "memory   %.1f%% (%d/%d MB)\n",
			stats.MemoryPercent, stats.MemoryUsedMB, stats.MemoryTotalMB)
		fmt.Fprintf(c.out, "runtime  %s, %d goroutines\n", stats.GoVersion, stats.Goroutines)
	})
}

// cmdMenu shows the caller's permission tree when invoked bare, and manages
// menu records when given a CRUD verb.
func (c *console) cmdMenu(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return c.cmdMenuAdmin(ctx, args)
	}
	if err := c.guard(); err != nil {
		return err
	}

	items, err := c.api.Base.UserMenu(ctx)
	routes := []menu.Route{}
	if err != nil {
		// The console stays navigable on a failed fetch.
		cli.Warning("menu fetch failed (" + err.Error() + "), showing fallback")
		routes = menu.Fallback()
	} else if routes, err = menu.Build(menuItems(items)); err != nil {
		return fmt.Errorf("build menu tree: %w", err)
	}

	return c.emit(routes, func() {
		cli.RenderTree(c.out, routeNodes(routes))
	})
}

// menuItems converts the wire records into builder input.
func menuItems(ms []admin.Menu) []menu.Item {
	out := make([]menu.Item, 0, len(ms))
	for _, m := range ms {
		out = append(out, menu.Item{
			ID:        m.ID,
			ParentID:  m.ParentID,
			Name:      m.Name,
			Type:      menu.Type(m.MenuType),
			Icon:      m.Icon,
			Path:      m.Path,
			Component: m.Component,
			Redirect:  m.Redirect,
			Order:     m.Order,
			IsHidden:  m.IsHidden,
			KeepAlive: m.KeepAlive,
			Children:  menuItems(m.Children),
		})
	}
	return out
}

func routeNodes(routes []menu.Route) []cli.TreeNode {
	nodes := make([]cli.TreeNode, 0, len(routes))
	for _, r := range routes {
		label := fmt.Sprintf("%s %s", r.Name, cli.Colorize(r.Path, cli.ColorDim))
		if r.Hidden {
			label += cli.Colorize(" (hidden)", cli.ColorYellow)
		}
		nodes = append(nodes, cli.TreeNode{Label: label, Children: routeNodes(r.Children)})
	}
	return nodes
}

func secondsToDuration(s uint64) time.Duration {
	return time.Duration(s) * time.Second
}
