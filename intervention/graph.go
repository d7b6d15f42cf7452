// graph.go - Interventions-Graph fuer aufgezeichnete Operationen
//
// Dieses Modul sammelt Operations-Knoten, die waehrend einer
// Tracing-Session aufgezeichnet und erst nach dem realen
// Forward-Pass aufgeloest werden. Add haengt einen Knoten an und
// gibt ein Proxy-Handle auf dessen spaeteres Ergebnis zurueck;
// eine Shape-Validierung findet hier bewusst nicht statt.
package intervention

import (
	"fmt"
)

// Target ist die aufgeschobene Operation eines Knotens
type Target func(args []any, kwargs map[string]any) (any, error)

// Node ist ein aufgezeichneter Operations-Knoten
type Node struct {
	index   int
	target  Target
	args    []any
	kwargs  map[string]any
	value   any
	err     error
	settled bool
}

// Index gibt die Einfuegeposition des Knotens zurueck
func (n *Node) Index() int { return n.index }

// Graph akkumuliert Knoten in Einfuegereihenfolge
type Graph struct {
	nodes []*Node

	// MaxNodes begrenzt die Knotenzahl; 0 = unbegrenzt
	MaxNodes int
}

// NewGraph erstellt einen leeren Graphen
func NewGraph() *Graph {
	return &Graph{}
}

// Add haengt einen Knoten an und gibt dessen Proxy zurueck
func (g *Graph) Add(target Target, args []any, kwargs map[string]any) *Proxy {
	if g.MaxNodes > 0 && len(g.nodes) >= g.MaxNodes {
		panic(fmt.Sprintf("intervention: node limit %d exceeded", g.MaxNodes))
	}

	n := &Node{
		index:  len(g.nodes),
		target: target,
		args:   args,
		kwargs: kwargs,
	}
	g.nodes = append(g.nodes, n)
	return &Proxy{node: n}
}

// Len gibt die Anzahl der Knoten zurueck
func (g *Graph) Len() int { return len(g.nodes) }

// Reset verwirft alle Knoten
func (g *Graph) Reset() { g.nodes = nil }

// Settle loest alle Knoten in Einfuegereihenfolge auf. Proxy-Argumente
// werden durch die Werte ihrer Knoten ersetzt; ein Knoten darf nur von
// frueher eingefuegten Knoten abhaengen.
func (g *Graph) Settle() error {
	for _, n := range g.nodes {
		if n.settled {
			continue
		}

		args := make([]any, len(n.args))
		for i, a := range n.args {
			v, err := resolve(a)
			if err != nil {
				return fmt.Errorf("node %d: %w", n.index, err)
			}
			args[i] = v
		}

		kwargs := make(map[string]any, len(n.kwargs))
		for k, a := range n.kwargs {
			v, err := resolve(a)
			if err != nil {
				return fmt.Errorf("node %d: %w", n.index, err)
			}
			kwargs[k] = v
		}

		n.value, n.err = n.target(args, kwargs)
		n.settled = true
		if n.err != nil {
			return fmt.Errorf("node %d: %w", n.index, n.err)
		}
	}

	return nil
}

// resolve ersetzt Proxy-Argumente durch ihre aufgeloesten Werte
func resolve(v any) (any, error) {
	p, ok := v.(*Proxy)
	if !ok {
		return v, nil
	}

	if !p.node.settled {
		return nil, fmt.Errorf("depends on unsettled node %d", p.node.index)
	}
	if p.node.err != nil {
		return nil, p.node.err
	}
	return p.node.value, nil
}
