package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opsdeck/backoffice/internal/app/domain/product"
	"github.com/opsdeck/backoffice/internal/cli"
	"github.com/opsdeck/backoffice/internal/client"
)

func (c *console) cmdProduct(ctx context.Context, args []string) error {
	const usage = "boctl product <list|get|create|update|delete|status> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("product list", flag.ContinueOnError)
		opts := client.ProductListOptions{}
		fs.StringVar(&opts.Keyword, "keyword", "", "filter by name substring")
		fs.Int64Var(&opts.CategoryID, "category", 0, "filter by category id")
		activeOnly := fs.Bool("active", false, "only active products")
		inactiveOnly := fs.Bool("inactive", false, "only inactive products")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *activeOnly {
			v := true
			opts.IsActive = &v
		} else if *inactiveOnly {
			v := false
			opts.IsActive = &v
		}
		items, page, err := c.api.Products.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(items, func() {
			tbl := cli.NewTable("ID", "NAME", "CATEGORY", "COST", "SALE", "ACTIVE")
			for _, p := range items {
				tbl.AddRow(
					fmt.Sprint(p.ID), p.Name, p.CategoryName,
					fmt.Sprintf("%.2f", p.CostPrice),
					fmt.Sprintf("%.2f", p.SalePrice),
					fmt.Sprint(p.Status),
				)
			}
			tbl.Render()
			c.pageFooter(len(items), page)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		p, err := c.api.Products.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(p, func() {
			fmt.Fprintf(c.out, "%d  %s  category=%s cost=%.2f sale=%.2f active=%v\n",
				p.ID, p.Name, p.CategoryName, p.CostPrice, p.SalePrice, p.Status)
			if p.Description != "" {
				fmt.Fprintln(c.out, p.Description)
			}
		})

	case "create", "update":
		fs := flag.NewFlagSet("product "+verb, flag.ContinueOnError)
		var p product.Product
		id := fs.Int64("id", 0, "product id (update only)")
		fs.StringVar(&p.Name, "name", "", "product name")
		fs.Int64Var(&p.CategoryID, "category", 0, "category id")
		fs.StringVar(&p.Image, "image", "", "image URL (see `boctl upload image`)")
		fs.Float64Var(&p.CostPrice, "cost", 0, "cost price")
		fs.Float64Var(&p.SalePrice, "sale", 0, "sale price")
		fs.StringVar(&p.Description, "desc", "", "description")
		fs.BoolVar(&p.Status, "active", true, "product active")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var out any
		var err error
		if verb == "create" {
			if p.Name == "" {
				return usagef(usage, "missing --name")
			}
			out, err = c.api.Products.Create(ctx, p)
		} else {
			if *id == 0 {
				return usagef(usage, "missing --id")
			}
			out, err = c.api.Products.Update(ctx, *id, p)
		}
		if err != nil {
			return err
		}
		return c.emit(out, func() { cli.Success("product " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Products.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("product %d deleted", id))
		return nil

	case "status":
		fs := flag.NewFlagSet("product status", flag.ContinueOnError)
		id := fs.Int64("id", 0, "product id")
		active := fs.Bool("active", true, "target status")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		if *id == 0 {
			return usagef(usage, "missing --id")
		}
		p, err := c.api.Products.SetStatus(ctx, *id, *active)
		if err != nil {
			return err
		}
		return c.emit(p, func() {
			cli.Success(fmt.Sprintf("product %d active=%v", p.ID, p.Status))
		})

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func (c *console) cmdCategory(ctx context.Context, args []string) error {
	const usage = "boctl category <list|get|create|update|delete> [flags]"
	if len(args) == 0 {
		return usagef(usage, "missing verb")
	}
	if err := c.guard(); err != nil {
		return err
	}
	verb, rest := args[0], args[1:]

	switch verb {
	case "list":
		fs := flag.NewFlagSet("category list", flag.ContinueOnError)
		opts := client.CategoryListOptions{}
		fs.StringVar(&opts.Keyword, "keyword", "", "filter by name substring")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.PageSize, "page-size", 20, "page size")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		items, page, err := c.api.Categories.List(ctx, opts)
		if err != nil {
			return err
		}
		return c.emit(items, func() {
			tbl := cli.NewTable("ID", "NAME", "PRODUCTS", "ORDER", "DESCRIPTION")
			for _, cat := range items {
				tbl.AddRow(
					fmt.Sprint(cat.ID), cat.Name,
					fmt.Sprint(cat.ProductCount),
					fmt.Sprint(cat.Order), cat.Description,
				)
			}
			tbl.Render()
			c.pageFooter(len(items), page)
		})

	case "get":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		cat, err := c.api.Categories.Get(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(cat, func() {
			fmt.Fprintf(c.out, "%d  %s  %s (%d products)\n",
				cat.ID, cat.Name, cat.Description, cat.ProductCount)
		})

	case "create", "update":
		fs := flag.NewFlagSet("category "+verb, flag.ContinueOnError)
		var cat product.Category
		id := fs.Int64("id", 0, "category id (update only)")
		fs.StringVar(&cat.Name, "name", "", "category name")
		fs.StringVar(&cat.Description, "desc", "", "description")
		fs.IntVar(&cat.Order, "order", 0, "sort order")
		if err := fs.Parse(rest); err != nil {
			return usagef(usage, "%v", err)
		}
		var out any
		var err error
		if verb == "create" {
			if cat.Name == "" {
				return usagef(usage, "missing --name")
			}
			out, err = c.api.Categories.Create(ctx, cat)
		} else {
			if *id == 0 {
				return usagef(usage, "missing --id")
			}
			out, err = c.api.Categories.Update(ctx, *id, cat)
		}
		if err != nil {
			return err
		}
		return c.emit(out, func() { cli.Success("category " + verb + "d") })

	case "delete":
		id, err := idArg(rest, usage)
		if err != nil {
			return err
		}
		if err := c.api.Categories.Delete(ctx, id); err != nil {
			return err
		}
		cli.Success(fmt.Sprintf("category %d deleted", id))
		return nil

	default:
		return usagef(usage, "unknown verb: %s", verb)
	}
}

func (c *console) cmdUpload(ctx context.Context, args []string) error {
	const usage = "boctl upload image FILE"
	if len(args) < 2 || args[0] != "image" {
		return usagef(usage, "expected `image FILE`")
	}
	if err := c.guard(); err != nil {
		return err
	}

	path := args[1]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	spin := cli.NewSpinner("uploading " + filepath.Base(path))
	spin.Start()
	res, err := c.api.Uploads.Image(ctx, filepath.Base(path), f)
	if err != nil {
		spin.Stop()
		return err
	}
	spin.Stop()
	return c.emit(res, func() {
		cli.Success(fmt.Sprintf("uploaded %s (%d bytes) -> %s", res.Filename, res.Size, res.URL))
	})
}
