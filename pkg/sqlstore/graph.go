package sqlstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"

	"github.com/bitechdev/RecordSpec/pkg/restriction"
)

type graphNode struct {
	Schema  string
	Table   string
	Depth   int
	parents []graphEdge
}

// graphEdge points from a node to one of its parents inside the closure
type graphEdge struct {
	Parent  *graphNode
	Columns []columnPair
}

type rawEdge struct {
	child   *graphNode
	parent  *graphNode
	columns []columnPair
}

// descendantGraph is the foreign key closure below a root table. Nodes are in
// topological order with the root first; each node keeps only the edges to
// parents placed before it, so the edge set is acyclic.
type descendantGraph struct {
	store *Store
	root  *graphNode
	nodes []*graphNode
}

func nodeKey(schema, table string) string {
	return schema + "\x00" + table
}

func (s *Store) buildGraph(ctx context.Context, db bun.IDB, schema, table string) (*descendantGraph, error) {
	root := &graphNode{Schema: schema, Table: table}
	discovered := []*graphNode{root}
	byKey := map[string]*graphNode{nodeKey(schema, table): root}

	var edges []rawEdge
	for i := 0; i < len(discovered); i++ {
		parent := discovered[i]
		keys, err := s.dialect.ReferencingKeys(ctx, db, parent.Schema, parent.Table)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(keys, func(a, b int) bool {
			if keys[a].ChildSchema != keys[b].ChildSchema {
				return keys[a].ChildSchema < keys[b].ChildSchema
			}
			if keys[a].ChildTable != keys[b].ChildTable {
				return keys[a].ChildTable < keys[b].ChildTable
			}
			return keys[a].Name < keys[b].Name
		})

		for _, fk := range keys {
			k := nodeKey(fk.ChildSchema, fk.ChildTable)
			child, ok := byKey[k]
			if !ok {
				child = &graphNode{Schema: fk.ChildSchema, Table: fk.ChildTable, Depth: parent.Depth + 1}
				byKey[k] = child
				discovered = append(discovered, child)
			}
			if child == parent {
				continue
			}
			edges = append(edges, rawEdge{child: child, parent: parent, columns: fk.Columns})
		}
	}

	sortByDepth(discovered)
	order := topoOrder(discovered, edges)
	position := make(map[*graphNode]int, len(order))
	for i, n := range order {
		position[n] = i
	}
	for _, e := range edges {
		if position[e.parent] < position[e.child] {
			e.child.parents = append(e.child.parents, graphEdge{Parent: e.parent, Columns: e.columns})
		}
	}
	return &descendantGraph{store: s, root: root, nodes: order}, nil
}

// sortByDepth orders nodes by BFS depth, then schema, then table. The root
// stays first.
func sortByDepth(nodes []*graphNode) {
	rest := nodes[1:]
	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Schema != b.Schema {
			return a.Schema < b.Schema
		}
		return a.Table < b.Table
	})
}

// topoOrder places parents before children, breaking ties by the order of
// nodes. Cycles are cut by placing the earliest remaining node.
func topoOrder(nodes []*graphNode, edges []rawEdge) []*graphNode {
	indegree := make(map[*graphNode]int, len(nodes))
	children := make(map[*graphNode][]*graphNode, len(nodes))
	for _, e := range edges {
		indegree[e.child]++
		children[e.parent] = append(children[e.parent], e.child)
	}

	placed := make(map[*graphNode]bool, len(nodes))
	order := make([]*graphNode, 0, len(nodes))
	place := func(n *graphNode) {
		placed[n] = true
		order = append(order, n)
		for _, c := range children[n] {
			indegree[c]--
		}
	}

	place(nodes[0])
	for len(order) < len(nodes) {
		var next *graphNode
		for _, n := range nodes {
			if !placed[n] && indegree[n] <= 0 {
				next = n
				break
			}
		}
		if next == nil {
			for _, n := range nodes {
				if !placed[n] {
					next = n
					break
				}
			}
		}
		place(next)
	}
	return order
}

// related renders a condition that holds for rows of n (referenced as ref)
// which reference some root row matching pred. Alternative paths are ORed so
// a row reachable twice still matches once.
func (g *descendantGraph) related(n *graphNode, ref string, pred restriction.Predicate, seq *int) sqlFragment {
	if n == g.root {
		return g.store.renderPredicate(ref, pred)
	}

	alternatives := make([]sqlFragment, 0, len(n.parents))
	for _, e := range n.parents {
		*seq++
		alias := fmt.Sprintf("r%d", *seq)

		conds := make([]sqlFragment, 0, len(e.Columns)+1)
		for _, c := range e.Columns {
			conds = append(conds, sqlFragment{
				Query: "? = ?",
				Args:  []interface{}{qualify(alias, c.Parent), qualify(ref, c.Child)},
			})
		}
		conds = append(conds, g.related(e.Parent, alias, pred, seq))
		where := and(conds...)

		args := []interface{}{bun.Ident(g.store.dialect.TableRef(e.Parent.Schema, e.Parent.Table)), bun.Ident(alias)}
		alternatives = append(alternatives, sqlFragment{
			Query: "EXISTS (SELECT 1 FROM ? AS ? WHERE " + where.Query + ")",
			Args:  append(args, where.Args...),
		})
	}

	switch len(alternatives) {
	case 0:
		return sqlFragment{Query: "1 = 0"}
	case 1:
		return alternatives[0]
	}
	parts := make([]string, len(alternatives))
	var args []interface{}
	for i, alt := range alternatives {
		parts[i] = alt.Query
		args = append(args, alt.Args...)
	}
	return sqlFragment{Query: "(" + strings.Join(parts, " OR ") + ")", Args: args}
}
