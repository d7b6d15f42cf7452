// proxy.go - Proxy-Handle auf das aufgeschobene Ergebnis eines Knotens
package intervention

import "errors"

// ErrPending zeigt an, dass der Knoten noch nicht aufgeloest wurde
var ErrPending = errors.New("intervention: node not settled yet")

// Proxy referenziert das Ergebnis eines Graph-Knotens. Der Wert ist
// erst nach Graph.Settle verfuegbar.
type Proxy struct {
	node *Node
}

// Index gibt die Position des referenzierten Knotens zurueck
func (p *Proxy) Index() int { return p.node.index }

// Value gibt den aufgeloesten Wert des Knotens zurueck
func (p *Proxy) Value() (any, error) {
	if !p.node.settled {
		return nil, ErrPending
	}
	return p.node.value, p.node.err
}
