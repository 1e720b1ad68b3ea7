package binding

import (
	"net/url"
	"strings"
)

// Field is the state of one control, as sent to and from the page.
type Field struct {
	Checked *bool   `json:"checked,omitempty"`
	Value   *string `json:"value,omitempty"`
}

// Fields is a map-backed set of controls keyed by control id.
type Fields map[string]*Field

// NewFields returns a Fields holding an empty control for every binding.
func NewFields() Fields {
	f := make(Fields, len(Bindings))
	for _, b := range Bindings {
		f[b.ControlID] = &Field{}
	}
	return f
}

func (f Fields) Lookup(id string) (Control, bool) {
	fd, ok := f[id]
	if !ok || fd == nil {
		return nil, false
	}
	return fieldControl{fd}, true
}

type fieldControl struct{ f *Field }

func (c fieldControl) Checked() bool { return c.f.Checked != nil && *c.f.Checked }

func (c fieldControl) SetChecked(v bool) { c.f.Checked = &v }

func (c fieldControl) Value() string {
	if c.f.Value == nil {
		return ""
	}
	return *c.f.Value
}

func (c fieldControl) SetValue(v string) { c.f.Value = &v }

// Form reads controls from a submitted HTML form. Every bound control is
// present: an absent checkbox is unchecked, as browsers omit unchecked boxes.
// Value controls absent from the form are treated as missing.
type Form url.Values

func (f Form) Lookup(id string) (Control, bool) {
	for _, b := range Bindings {
		if b.ControlID != id {
			continue
		}
		vals, present := f[id]
		if b.Kind != Checkbox && !present {
			return nil, false
		}
		return &formControl{vals: vals, present: present}, true
	}
	return nil, false
}

type formControl struct {
	vals    []string
	present bool
}

func (c *formControl) Checked() bool {
	if !c.present {
		return false
	}
	if len(c.vals) == 0 {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.vals[len(c.vals)-1])) {
	case "off", "false", "0":
		return false
	}
	return true
}

func (c *formControl) SetChecked(v bool) {
	c.present = v
	c.vals = nil
}

func (c *formControl) Value() string {
	if len(c.vals) == 0 {
		return ""
	}
	return c.vals[0]
}

func (c *formControl) SetValue(v string) {
	c.present = true
	c.vals = []string{v}
}
