package render

import (
	"maps"
	"slices"
)

type element struct {
	transition string
	styles     map[string]string
	classes    map[string]bool
}

// Document holds the styling state of every target a surface has touched.
// It is not safe for concurrent use.
type Document struct {
	elements map[Target]*element
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{elements: make(map[Target]*element)}
}

func (d *Document) element(t Target) *element {
	el, ok := d.elements[t]
	if !ok {
		el = &element{
			styles:  make(map[string]string),
			classes: make(map[string]bool),
		}
		d.elements[t] = el
	}
	return el
}

func (d *Document) setTransition(t Target, value string) {
	d.element(t).transition = value
}

func (d *Document) applyStyle(t Target, prop, value string) {
	el := d.element(t)
	if value == "" {
		delete(el.styles, prop)
		return
	}
	el.styles[prop] = value
}

func (d *Document) toggleClass(t Target, name string, on bool) {
	el := d.element(t)
	if on {
		el.classes[name] = true
		return
	}
	delete(el.classes, name)
}

// Transition returns the target's current transition value.
func (d *Document) Transition(t Target) string {
	if el, ok := d.elements[t]; ok {
		return el.transition
	}
	return ""
}

// Style returns the target's inline value for prop, or "".
func (d *Document) Style(t Target, prop string) string {
	if el, ok := d.elements[t]; ok {
		return el.styles[prop]
	}
	return ""
}

// Styles returns a copy of the target's inline styles.
func (d *Document) Styles(t Target) map[string]string {
	if el, ok := d.elements[t]; ok {
		return maps.Clone(el.styles)
	}
	return map[string]string{}
}

// HasClass reports whether the target carries the class.
func (d *Document) HasClass(t Target, name string) bool {
	if el, ok := d.elements[t]; ok {
		return el.classes[name]
	}
	return false
}

// Classes returns the target's classes in sorted order.
func (d *Document) Classes(t Target) []string {
	el, ok := d.elements[t]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(el.classes))
}

// SetClass seeds a class before any animation runs.
func (d *Document) SetClass(t Target, name string, on bool) {
	d.toggleClass(t, name, on)
}

// SetStyle seeds an inline style before any animation runs.
func (d *Document) SetStyle(t Target, prop, value string) {
	d.applyStyle(t, prop, value)
}
