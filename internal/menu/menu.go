// Package menu builds the navigation tree an operator sees from the flat
// permission menu records the service stores. The builder tolerates both
// flat (parent_id) and pre-nested input, fills missing icons, joins paths
// and rejects malformed hierarchies instead of looping on them.
package menu

import (
	"fmt"
	"sort"
	"strings"
)

// Type distinguishes the three permission menu record flavors.
type Type string

const (
	TypeCatalog Type = "catalog"
	TypeMenu    Type = "menu"
	TypeButton  Type = "button"
)

// defaultIcons fill records whose icon was left empty, keyed by record type.
var defaultIcons = map[Type]string{
	TypeCatalog: "carbon:folder",
	TypeMenu:    "ph:list-bold",
	TypeButton:  "carbon:touch-1",
}

// DefaultIcon returns the fallback icon for a record type. Unknown types get
// the menu fallback.
func DefaultIcon(t Type) string {
	if icon, ok := defaultIcons[t]; ok {
		return icon
	}
	return defaultIcons[TypeMenu]
}

// Item is one permission menu record as returned by the service. Children
// may be pre-populated (nested responses) or left nil with ParentID set
// (flat responses); Build accepts both.
type Item struct {
	ID        int64  `json:"id"`
	ParentID  int64  `json:"parent_id"`
	Name      string `json:"name"`
	Type      Type   `json:"menu_type"`
	Icon      string `json:"icon"`
	Path      string `json:"path"`
	Component string `json:"component"`
	Redirect  string `json:"redirect"`
	Order     int    `json:"order"`
	IsHidden  bool   `json:"is_hidden"`
	KeepAlive bool   `json:"keepalive"`
	Children  []Item `json:"children,omitempty"`
}

// Route is one node of the built navigation tree. Paths are absolute and
// unique across the whole tree.
type Route struct {
	ID        int64
	Name      string
	Path      string
	Icon      string
	Component string
	Redirect  string
	Order     int
	Hidden    bool
	KeepAlive bool
	Children  []Route
}

// Build assembles the navigation tree. Button records carry action
// permissions, not navigation, and are excluded. Duplicate IDs, parent
// cycles and duplicate resolved paths are reported as errors.
func Build(items []Item) ([]Route, error) {
	flat := flatten(items)

	byID := make(map[int64]Item, len(flat))
	for _, it := range flat {
		if _, dup := byID[it.ID]; dup {
			return nil, fmt.Errorf("menu: duplicate id %d", it.ID)
		}
		byID[it.ID] = it
	}

	if err := checkCycles(byID); err != nil {
		return nil, err
	}

	children := make(map[int64][]Item)
	var roots []Item
	for _, it := range flat {
		if it.Type == TypeButton {
			continue
		}
		if _, hasParent := byID[it.ParentID]; it.ParentID != 0 && hasParent {
			children[it.ParentID] = append(children[it.ParentID], it)
			continue
		}
		// records pointing at a missing parent surface at the top rather
		// than vanishing
		roots = append(roots, it)
	}

	seen := make(map[string]int64)
	routes, err := assemble(roots, children, "", seen)
	if err != nil {
		return nil, err
	}
	return routes, nil
}

func flatten(items []Item) []Item {
	var out []Item
	var walk func(items []Item, parentID int64)
	walk = func(items []Item, parentID int64) {
		for _, it := range items {
			if it.ParentID == 0 {
				it.ParentID = parentID
			}
			kids := it.Children
			it.Children = nil
			out = append(out, it)
			walk(kids, it.ID)
		}
	}
	walk(items, 0)
	return out
}

func checkCycles(byID map[int64]Item) error {
	for id := range byID {
		slow := id
		hops := 0
		for {
			it, ok := byID[slow]
			if !ok || it.ParentID == 0 {
				break
			}
			if it.ParentID == it.ID {
				return fmt.Errorf("menu: id %d is its own parent", it.ID)
			}
			slow = it.ParentID
			hops++
			if hops > len(byID) {
				return fmt.Errorf("menu: parent cycle involving id %d", id)
			}
		}
	}
	return nil
}

func assemble(items []Item, children map[int64][]Item, parentPath string, seen map[string]int64) ([]Route, error) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].ID < items[j].ID
	})

	routes := make([]Route, 0, len(items))
	for _, it := range items {
		path := JoinPath(parentPath, it.Path)
		if prev, dup := seen[path]; dup {
			return nil, fmt.Errorf("menu: path %q claimed by both id %d and id %d", path, prev, it.ID)
		}
		seen[path] = it.ID

		icon := it.Icon
		if icon == "" {
			icon = DefaultIcon(it.Type)
		}

		kids, err := assemble(children[it.ID], children, path, seen)
		if err != nil {
			return nil, err
		}
		routes = append(routes, Route{
			ID:        it.ID,
			Name:      it.Name,
			Path:      path,
			Icon:      icon,
			Component: it.Component,
			Redirect:  it.Redirect,
			Order:     it.Order,
			Hidden:    it.IsHidden,
			KeepAlive: it.KeepAlive,
			Children:  kids,
		})
	}
	return routes, nil
}

// JoinPath resolves a child segment against its parent path. Absolute child
// paths stand alone; relative ones are appended. Duplicate slashes collapse.
func JoinPath(parent, child string) string {
	child = strings.TrimSpace(child)
	if strings.HasPrefix(child, "/") {
		return canonical(child)
	}
	if parent == "" {
		return canonical("/" + child)
	}
	return canonical(parent + "/" + child)
}

func canonical(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// BuildBreadcrumbs maps every route path to its display name, used by
// consoles to label the current location.
func BuildBreadcrumbs(routes []Route) map[string]string {
	crumbs := make(map[string]string)
	var walk func(rs []Route)
	walk = func(rs []Route) {
		for _, r := range rs {
			crumbs[r.Path] = r.Name
			walk(r.Children)
		}
	}
	walk(routes)
	return crumbs
}

// Fallback is the minimal tree used when the menu fetch fails: the console
// stays navigable with a dashboard entry only.
func Fallback() []Route {
	return []Route{{
		Name:      "Dashboard",
		Path:      "/dashboard",
		Icon:      "mdi:monitor-dashboard",
		Component: "dashboard",
	}}
}
