package view

import (
	"encoding/json"

	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

// Field describes one labelled input of a form.
type Field struct {
	Type        string
	Label       string
	ID          string
	Value       string
	Note        string
	Placeholder string
	// Edited is true once the customer typed into the field; Valid only matters then.
	Edited bool
	Valid  bool
	// PostURL receives {id, value} on input. Empty renders a plain form input.
	PostURL string
}

func (f Field) Render() g.Node {
	inputID := "field-" + f.ID
	invalid := f.Edited && !f.Valid

	attrs := []g.Node{
		h.Type(f.Type),
		h.ID(inputID),
		h.Value(f.Value),
		g.If(f.Placeholder != "", h.Placeholder(f.Placeholder)),
		g.If(invalid, h.Aria("invalid", "true")),
	}
	if f.PostURL == "" {
		attrs = append(attrs, h.Name(f.ID))
	} else {
		attrs = append(attrs,
			h.Name("value"),
			hx.Post(f.PostURL),
			hx.Trigger("input changed delay:300ms"),
			g.Attr("hx-vals", editVals(f.ID)),
		)
	}

	return h.Div(
		c.Classes{
			"Field":          true,
			"Field_isValid":  f.Edited && f.Valid,
			"Field_hasError": invalid,
		},
		h.Label(h.For(inputID), g.Text(f.Label)),
		h.Input(attrs...),
		g.If(f.Note != "", h.P(h.Class("Field-Note"), g.Text(f.Note))),
	)
}

func editVals(id string) string {
	vals, _ := json.Marshal(map[string]string{"id": id})
	return string(vals)
}
