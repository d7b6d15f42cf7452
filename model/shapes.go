// shapes.go - Shape/DType-Cache der Modell-Module
//
// Dieses Modul speichert die waehrend eines (symbolischen oder realen)
// Durchlaufs beobachteten Modul-Shapes in Einfuegereihenfolge. Der
// Cache ist die Grundlage fuer die Validierung von Interventionen:
// nach einem Scan sind alle Shapes bekannt, bevor real gerechnet wird.
package model

import (
	"fmt"

	"github.com/agnivade/levenshtein"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nnscope/nnscope/ml"
)

// ModuleShape beschreibt die beobachteten Shapes eines Moduls
type ModuleShape struct {
	Name  string
	In    []int
	Out   []int
	DType ml.DType
}

// ShapeCache haelt Modul-Shapes in Einfuegereihenfolge
type ShapeCache struct {
	mods *orderedmap.OrderedMap[string, ModuleShape]
}

// NewShapeCache erstellt einen leeren Cache
func NewShapeCache() *ShapeCache {
	return &ShapeCache{mods: orderedmap.New[string, ModuleShape]()}
}

// Record speichert die Shapes eines Moduls, letzter Eintrag gewinnt
func (c *ShapeCache) Record(name string, in, out []int, dtype ml.DType) {
	c.mods.Set(name, ModuleShape{Name: name, In: in, Out: out, DType: dtype})
}

// Lookup gibt die Shapes eines Moduls zurueck. Bei unbekanntem Namen
// wird der aehnlichste bekannte Modulname vorgeschlagen.
func (c *ShapeCache) Lookup(name string) (ModuleShape, error) {
	if s, ok := c.mods.Get(name); ok {
		return s, nil
	}

	if suggestion := c.nearest(name); suggestion != "" {
		return ModuleShape{}, fmt.Errorf("model: unknown module %q, did you mean %q?", name, suggestion)
	}
	return ModuleShape{}, fmt.Errorf("model: unknown module %q, no shapes recorded yet (scan first)", name)
}

// Names gibt alle Modulnamen in Einfuegereihenfolge zurueck
func (c *ShapeCache) Names() []string {
	names := make([]string, 0, c.mods.Len())
	for pair := c.mods.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Len gibt die Anzahl der Eintraege zurueck
func (c *ShapeCache) Len() int { return c.mods.Len() }

// Clear verwirft alle Eintraege
func (c *ShapeCache) Clear() {
	c.mods = orderedmap.New[string, ModuleShape]()
}

// nearest findet den Namen mit der kleinsten Levenshtein-Distanz
func (c *ShapeCache) nearest(name string) string {
	best, bestDist := "", 4
	for pair := c.mods.Oldest(); pair != nil; pair = pair.Next() {
		if d := levenshtein.ComputeDistance(name, pair.Key); d < bestDist {
			best, bestDist = pair.Key, d
		}
	}
	return best
}
