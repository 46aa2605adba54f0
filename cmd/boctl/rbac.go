package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/client"
)

func (c *console) cmdUser(ctx context.Context, args []string) error {
	const usage = "boctl user <list|get|create|update|delete|reset-password> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("user list", flag.ContinueOnError)
		opts := client.UserListOptions{}
		fs.StringVar(&opts.Username, "username", "", "filter by username substring")
		fs.StringVar(&opts.Email, "email", "", "filter by email substring")
		fs.Int64Var(&opts.DeptID, "dept", 0, "filter by department id")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		users, page, err := c.api.Users.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(users, func() {
			tbl := cli.NewTable("ID", "USERNAME", "NICKNAME", "EMAIL", "ACTIVE", "SUPER", "DEPT", "ROLES")
			for _, u := range users {
				tbl.AddRow(
					fmt.Sprint(u.ID), u.Username, u.Nickname, u.Email,
					fmt.Sprint(u.IsActive), fmt.Sprint(u.IsSuperuser),
					fmt.Sprint(u.DeptID), strings.Join(u.RoleNames(), ","),
				)
			}
			tbl.Render()
			c.pageFooter(len(users), page)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		u, err := c.api.Users.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(u, func() {
			fmt.Fprintf(c.out, "%d  %s  %s  active=%v superuser=%v roles=%s\n",
				u.ID, u.Username, u.Email, u.IsActive, u.IsSuperuser,
				strings.Join(u.RoleNames(), ","))
		})

	case "create", "update":
		fs := flag.NewFlagSet("user "+verb, flag.ContinueOnError)
		in := client.UserInput{IsActive: true}
		fs.Int64Var(&in.ID, "id", 0, "user id (update only)")
		fs.StringVar(&in.Username, "username", "", "account name")
		fs.StringVar(&in.Nickname, "nickname", "", "display name")
		fs.StringVar(&in.Email, "email", "", "email address")
		fs.StringVar(&in.Phone, "phone", "", "phone number")
		fs.StringVar(&in.Password, "password", "", "initial password (create only)")
		fs.BoolVar(&in.IsActive, "active", true, "account enabled")
		fs.BoolVar(&in.IsSuperuser, "superuser", false, "grant superuser")
		fs.Int64Var(&in.DeptID, "dept", 0, "department id")
		roleIDs := fs.String("roles", "", "comma-separated role ids")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *roleIDs != "" {
			ids, err := parseIDs(*roleIDs)
			if err != nil {
				return usagef(usage, "bad --roles: %v", err)
			}
			in.RoleIDs = ids
		}
		var u any
		var err error
		if verb == "create" {
			if in.Username == "" {
				return usagef(usage, "missing --username")
			}
			u, err = c.api.Users.Create(ctx, in)
		} else {
			if in.ID == 0 {
				return usagef(usage, "missing --id")
			}
			u, err = c.api.Users.Update(ctx, in)
		}
		if err != nil {
			return err
		}
		return c.emit(u, func() { cli.Success("user " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Users.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("user %d deleted", id))
		return nil

	case "reset-password":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		pw, err := c.api.Users.ResetPassword(ctx, id)
		if err != nil {
			return err
		}
		if c.json {
			return c.emit(map[string]string{"password": pw}, nil)
		}
		cli.Success("password reset; new password: " + pw)
		return nil

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func (c *console) cmdRole(ctx context.Context, args []string) error {
	const usage = "boctl role <list|get|create|update|delete|grant> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("role list", flag.ContinueOnError)
		opts := client.RoleListOptions{}
		fs.StringVar(&opts.Name, "name", "", "filter by name substring")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		roles, page, err := c.api.Roles.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(roles, func() {
			tbl := cli.NewTable("ID", "NAME", "DESC")
			for _, r := range roles {
				tbl.AddRow(fmt.Sprint(r.ID), r.Name, r.Desc)
			}
			tbl.Render()
			c.pageFooter(len(roles), page)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		r, err := c.api.Roles.Authorized(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(r, func() {
			fmt.Fprintf(c.out, "%d  %s  %s\n", r.ID, r.Name, r.Desc)
			if len(r.Menus) > 0 {
				fmt.Fprintf(c.out, "menus: %d granted\n", len(r.Menus))
			}
			if len(r.Apis) > 0 {
				tbl := cli.NewTable("METHOD", "PATH", "SUMMARY")
				for _, a := range r.Apis {
					tbl.AddRow(a.Method, a.Path, a.Summary)
				}
				tbl.Render()
			}
		})

	case "create", "update":
		fs := flag.NewFlagSet("role "+verb, flag.ContinueOnError)
		id := fs.Int64("id", 0, "role id (update only)")
		name := fs.String("name", "", "role name")
		desc := fs.String("desc", "", "role description")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var r any
		var err error
		if verb == "create" {
			if *name == "" {
				return usagef(usage, "missing --name")
			}
			r, err = c.api.Roles.Create(ctx, *name, *desc)
		} else {
			if *id == 0 {
				return usagef(usage, "missing --id")
			}
			r, err = c.api.Roles.Update(ctx, *id, *name, *desc)
		}
		if err != nil {
			return err
		}
		return c.emit(r, func() { cli.Success("role " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Roles.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("role %d deleted", id))
		return nil

	case "grant":
		fs := flag.NewFlagSet("role grant", flag.ContinueOnError)
		id := fs.Int64("id", 0, "role id")
		menus := fs.String("menus", "", "comma-separated menu ids")
		apis := fs.String("apis", "", "comma-separated api ids")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *id == 0 {
			return usagef(usage, "missing --id")
		}
		menuIDs, err := parseIDs(*menus)
		if err != nil {
			return usagef(usage, "bad --menus: %v", err)
		}
		apiIDs, err := parseIDs(*apis)
		if err != nil {
			return usagef(usage, "bad --apis: %v", err)
		}
		if err := c.api.Roles.SetAuthorized(ctx, *id, menuIDs, apiIDs); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("role %d granted %d menus, %d apis", *id, len(menuIDs), len(apiIDs)))
		return nil

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

// idArg reads the positional or --id style identifier subcommands take.
func idArg(args []string, usage string) (int64, error) {
	if len(args) == 0 {
		return 0, usagef(usage, "missing id")
	}
	raw := strings.TrimPrefix(args[0], "--id=")
	if raw == "--id" && len(args) > 1 {
		raw = args[1]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef(usage, "bad id %q", args[0])
	}
	return id, nil
}

// parseIDs splits a comma list into ids. Empty input yields an empty,
// non-nil slice so grants can be cleared explicitly.
func parseIDs(s string) ([]int64, error) {
	out := []int64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an id", part)
		}
		out = append(out, id)
	}
	return out, nil
}
