package admin

import "sort"

// MenuTree nests a flat menu slice by ParentID. Siblings are ordered by
// Order then ID; rows whose parent is missing surface at the top so no
// record silently disappears. Self-references are treated as roots.
func MenuTree(items []Menu) []Menu {
	known := make(map[int64]bool, len(items))
	for _, m := range items {
		known[m.ID] = true
	}
	byParent := make(map[int64][]Menu)
	for _, m := range items {
		parent := m.ParentID
		if parent == m.ID || !known[parent] {
			parent = 0
		}
		byParent[parent] = append(byParent[parent], m)
	}

	var attach func(parent int64) []Menu
	attach = func(parent int64) []Menu {
		children := byParent[parent]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].Order != children[j].Order {
				return children[i].Order < children[j].Order
			}
			return children[i].ID < children[j].ID
		})
		out := make([]Menu, 0, len(children))
		for _, c := range children {
			c.Children = attach(c.ID)
			out = append(out, c)
		}
		return out
	}
	return attach(0)
}

// DeptTree nests departments the same way MenuTree nests menus.
func DeptTree(items []Dept) []Dept {
	known := make(map[int64]bool, len(items))
	for _, d := range items {
		known[d.ID] = true
	}
	byParent := make(map[int64][]Dept)
	for _, d := range items {
		parent := d.ParentID
		if parent == d.ID || !known[parent] {
			parent = 0
		}
		byParent[parent] = append(byParent[parent], d)
	}

	var attach func(parent int64) []Dept
	attach = func(parent int64) []Dept {
		children := byParent[parent]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].Order != children[j].Order {
				return children[i].Order < children[j].Order
			}
			return children[i].ID < children[j].ID
		})
		out := make([]Dept, 0, len(children))
		for _, c := range children {
			c.Children = attach(c.ID)
			out = append(out, c)
		}
		return out
	}
	return attach(0)
}
