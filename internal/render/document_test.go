package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_UnknownTarget(t *testing.T) {
	d := NewDocument()

	assert.Equal(t, "", d.Transition("nope"))
	assert.Equal(t, "", d.Style("nope", "width"))
	assert.False(t, d.HasClass("nope", "open"))
	assert.Nil(t, d.Classes("nope"))
	assert.Empty(t, d.Styles("nope"))
}

func TestDocument_SeedAndRead(t *testing.T) {
	d := NewDocument()
	d.SetClass("box", "zeta", true)
	d.SetClass("box", "alpha", true)
	d.SetStyle("box", "width", "10px")

	assert.Equal(t, []string{"alpha", "zeta"}, d.Classes("box"))

	styles := d.Styles("box")
	styles["width"] = "mutated"
	assert.Equal(t, "10px", d.Style("box", "width"), "Styles returns a copy")
}
