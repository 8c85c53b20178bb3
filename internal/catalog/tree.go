package catalog

import "fmt"

// Node is a category with its nested children, for rendering navigation.
type Node struct {
	Category Category `json:"category"`
	Depth    int      `json:"depth"`
	Children []Node   `json:"children,omitempty"`
}

// Tree returns the root categories passing v with their children nested.
func (h *Helper) Tree(v Visibility) ([]Node, error) {
	roots, err := h.RootCategories(v)
	if err != nil {
		return nil, err
	}
	return h.buildTree(roots, v, 0, make(map[string]bool))
}

// buildTree recursively nests the children of each category.
func (h *Helper) buildTree(cats []Category, v Visibility, depth int, path map[string]bool) ([]Node, error) {
	nodes := make([]Node, 0, len(cats))
	for _, c := range cats {
		if path[c.Slug] {
			return nil, fmt.Errorf("%w: %s", ErrCyclicHierarchy, c.Slug)
		}
		children, err := h.Children(c.Slug, v)
		if err != nil {
			return nil, err
		}
		path[c.Slug] = true
		nested, err := h.buildTree(children, v, depth+1, path)
		delete(path, c.Slug)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{Category: c, Depth: depth, Children: nested})
	}
	return nodes, nil
}

// Flatten walks a tree depth first, for indented select lists.
func Flatten(nodes []Node) []Node {
	var out []Node
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}
