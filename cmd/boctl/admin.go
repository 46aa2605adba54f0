package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/client"
)

// cmdMenuAdmin manages menu records; the bare `boctl menu` tree view lives
// in base.go.
func (c *console) cmdMenuAdmin(ctx context.Context, args []string) error {
	const usage = "boctl menu <list|get|create|update|delete> [flags]"
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("menu list", flag.ContinueOnError)
		page := fs.Int("page", 1, "page number")
		pageSize := fs.Int("page-size", 50, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		menus, pg, err := c.api.Menus.List(ctx, *page, *pageSize)
		if err != nil {
			return err
		}
		return c.emit(menus, func() {
			tbl := cli.NewTable("ID", "NAME", "TYPE", "PATH", "ICON", "ORDER", "HIDDEN")
			var addRows func(ms []admin.Menu, depth int)
			addRows = func(ms []admin.Menu, depth int) {
				for _, m := range ms {
					tbl.AddRow(
						fmt.Sprint(m.ID),
						strings.Repeat("  ", depth)+m.Name,
						m.MenuType, m.Path, m.Icon,
						fmt.Sprint(m.Order), fmt.Sprint(m.IsHidden),
					)
					addRows(m.Children, depth+1)
				}
			}
			addRows(menus, 0)
			tbl.Render()
			c.pageFooter(len(menus), pg)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		m, err := c.api.Menus.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(m, func() {
			fmt.Fprintf(c.out, "%d  %s  type=%s path=%s parent=%d order=%d hidden=%v\n",
				m.ID, m.Name, m.MenuType, m.Path, m.ParentID, m.Order, m.IsHidden)
		})

	case "create", "update":
		fs := flag.NewFlagSet("menu "+verb, flag.ContinueOnError)
		var m admin.Menu
		fs.Int64Var(&m.ID, "id", 0, "menu id (update only)")
		fs.StringVar(&m.Name, "name", "", "display name")
		fs.StringVar(&m.MenuType, "type", admin.MenuTypeMenu, "catalog, menu or button")
		fs.StringVar(&m.Icon, "icon", "", "icon name (empty selects the type default)")
		fs.StringVar(&m.Path, "path", "", "route path segment")
		fs.StringVar(&m.Component, "component", "", "frontend component")
		fs.StringVar(&m.Redirect, "redirect", "", "redirect route")
		fs.Int64Var(&m.ParentID, "parent", 0, "parent menu id")
		fs.IntVar(&m.Order, "order", 0, "sibling sort order")
		fs.BoolVar(&m.IsHidden, "hidden", false, "hide from navigation")
		fs.BoolVar(&m.KeepAlive, "keepalive", true, "keep component alive")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var out any
		var err error
		if verb == "create" {
			if m.Name == "" {
				return usagef(usage, "missing --name")
			}
			out, err = c.api.Menus.Create(ctx, m)
		} else {
			if m.ID == 0 {
				return usagef(usage, "missing --id")
			}
			out, err = c.api.Menus.Update(ctx, m)
		}
		if err != nil {
			return err
		}
		return c.emit(out, func() { cli.Success("menu " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Menus.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("menu %d deleted", id))
		return nil

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func (c *console) cmdApi(ctx context.Context, args []string) error {
	const usage = "boctl api <list|get|create|update|delete|refresh|tags> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("api list", flag.ContinueOnError)
		opts := client.ApiListOptions{}
		fs.StringVar(&opts.Path, "path", "", "filter by path substring")
		fs.StringVar(&opts.Summary, "summary", "", "filter by summary substring")
		fs.StringVar(&opts.Tags, "tags", "", "filter by tag")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		list, page, err := c.api.Apis.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(list, func() {
			tbl := cli.NewTable("ID", "METHOD", "PATH", "SUMMARY", "TAGS")
			for _, a := range list {
				tbl.AddRow(fmt.Sprint(a.ID), a.Method, a.Path, a.Summary, a.Tags)
			}
			tbl.Render()
			c.pageFooter(len(list), page)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		a, err := c.api.Apis.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(a, func() {
			fmt.Fprintf(c.out, "%d  %s %s  %s [%s]\n", a.ID, a.Method, a.Path, a.Summary, a.Tags)
		})

	case "create", "update":
		fs := flag.NewFlagSet("api "+verb, flag.ContinueOnError)
		in := client.ApiInput{}
		fs.Int64Var(&in.ID, "id", 0, "api id (update only)")
		fs.StringVar(&in.Path, "path", "", "route path")
		fs.StringVar(&in.Method, "method", "", "HTTP method")
		fs.StringVar(&in.Summary, "summary", "", "description")
		fs.StringVar(&in.Tags, "tags", "", "grouping tag")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var out any
		var err error
		if verb == "create" {
			if in.Path == "" || in.Method == "" {
				return usagef(usage, "missing --path or --method")
			}
			out, err = c.api.Apis.Create(ctx, in)
		} else {
			if in.ID == 0 {
				return usagef(usage, "missing --id")
			}
			out, err = c.api.Apis.Update(ctx, in)
		}
		if err != nil {
			return err
		}
		return c.emit(out, func() { cli.Success("api " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Apis.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("api %d deleted", id))
		return nil

	case "refresh":
		spin := cli.NewSpinner("reconciling route table")
		spin.Start()
		added, removed, err := c.api.Apis.Refresh(ctx)
		if err != nil {
			spin.Stop()
			return err
		}
		spin.Succeed(fmt.Sprintf("route table synced: %d added, %d removed", added, removed))
		return nil

	case "tags":
		tags, err := c.api.Apis.Tags(ctx)
		if err != nil {
			return err
		}
		return c.emit(tags, func() {
			fmt.Fprintln(c.out, strings.Join(tags, "\n"))
		})

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func (c *console) cmdDept(ctx context.Context, args []string) error {
	const usage = "boctl dept <list|get|create|update|delete> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("dept list", flag.ContinueOnError)
		name := fs.String("name", "", "filter by name substring")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		depts, err := c.api.Depts.List(ctx, *name)
		if err != nil {
			return err
		}
		return c.emit(depts, func() {
			cli.RenderTree(c.out, deptNodes(depts))
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		d, err := c.api.Depts.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(d, func() {
			fmt.Fprintf(c.out, "%d  %s  %s  parent=%d order=%d\n",
				d.ID, d.Name, d.Desc, d.ParentID, d.Order)
		})

	case "create", "update":
		fs := flag.NewFlagSet("dept "+verb, flag.ContinueOnError)
		var d admin.Dept
		fs.Int64Var(&d.ID, "id", 0, "department id (update only)")
		fs.StringVar(&d.Name, "name", "", "department name")
		fs.StringVar(&d.Desc, "desc", "", "description")
		fs.Int64Var(&d.ParentID, "parent", 0, "parent department id")
		fs.IntVar(&d.Order, "order", 0, "sibling sort order")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var out any
		var err error
		if verb == "create" {
			if d.Name == "" {
				return usagef(usage, "missing --name")
			}
			out, err = c.api.Depts.Create(ctx, d)
		} else {
			if d.ID == 0 {
				return usagef(usage, "missing --id")
			}
			out, err = c.api.Depts.Update(ctx, d)
		}
		if err != nil {
			return err
		}
		return c.emit(out, func() { cli.Success("dept " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Depts.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("dept %d deleted (children cascade)", id))
		return nil

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func deptNodes(depts []admin.Dept) []cli.TreeNode {
	nodes := make([]cli.TreeNode, 0, len(depts))
	for _, d := range depts {
		label := fmt.Sprintf("%s %s", d.Name, cli.Colorize(fmt.Sprintf("(id %d)", d.ID), cli.ColorDim))
		nodes = append(nodes, cli.TreeNode{Label: label, Children: deptNodes(d.Children)})
	}
	return nodes
}
