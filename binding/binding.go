// Package binding keeps the options record and the page's option controls in
// step. Controls are addressed by element id; the mapping from id to option
// key and control kind is fixed.
package binding

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"obfuscator-web/options"
)

// Kind is the type of control an option is bound to.
type Kind string

const (
	Checkbox Kind = "checkbox"
	Number   Kind = "number"
	Select   Kind = "select"
)

// Binding ties a control id to an option key.
type Binding struct {
	ControlID string
	Key       string
	Kind      Kind
}

// Bindings is the full control map, in page order.
var Bindings = []Binding{
	{"opt-compact", "compact", Checkbox},
	{"opt-controlFlowFlattening", "controlFlowFlattening", Checkbox},
	{"opt-deadCodeInjection", "deadCodeInjection", Checkbox},
	{"opt-stringArray", "stringArray", Checkbox},
	{"opt-stringArrayThreshold", "stringArrayThreshold", Number},
	{"opt-rotateStringArray", "rotateStringArray", Checkbox},
	{"opt-simplify", "simplify", Checkbox},
	{"opt-numbersToExpressions", "numbersToExpressions", Checkbox},
	{"opt-renameGlobals", "renameGlobals", Checkbox},
	{"opt-identifierNamesGenerator", "identifierNamesGenerator", Select},
	{"opt-splitStrings", "splitStrings", Checkbox},
	{"opt-splitStringsChunkLength", "splitStringsChunkLength", Number},
	{"opt-unicodeEscapeSequence", "unicodeEscapeSequence", Checkbox},
	{"opt-target", "target", Select},
}

// Control is a single on-screen input.
type Control interface {
	Checked() bool
	SetChecked(bool)
	Value() string
	SetValue(string)
}

// Controls looks up controls by id.
type Controls interface {
	Lookup(id string) (Control, bool)
}

// SyncFromConfig writes every option into its bound control. Controls that
// cannot be found are skipped.
func SyncFromConfig(c Controls, o options.Options) {
	for _, b := range Bindings {
		ctl, ok := c.Lookup(b.ControlID)
		if !ok {
			continue
		}
		switch b.Kind {
		case Checkbox:
			v, _ := boolField(&o, b.Key)
			ctl.SetChecked(v)
		case Number:
			v, _ := numberField(&o, b.Key)
			ctl.SetValue(strconv.FormatFloat(v, 'f', -1, 64))
		case Select:
			v, _ := stringField(&o, b.Key)
			ctl.SetValue(v)
		}
	}
}

// ReadIntoConfig reads control values over the currently persisted record,
// saves the result and returns it. Controls that cannot be found are skipped,
// as are number controls whose value does not parse.
func ReadIntoConfig(c Controls, m *options.Manager) options.Options {
	o := m.Load()
	for _, b := range Bindings {
		ctl, ok := c.Lookup(b.ControlID)
		if !ok {
			continue
		}
		switch b.Kind {
		case Checkbox:
			if _, p := boolField(&o, b.Key); p != nil {
				*p = ctl.Checked()
			}
		case Number:
			n, err := parseNumber(ctl.Value())
			if err != nil {
				continue
			}
			if _, p := numberField(&o, b.Key); p != nil {
				*p = n
			}
		case Select:
			if _, p := stringField(&o, b.Key); p != nil {
				*p = ctl.Value()
			}
		}
	}
	m.Save(o)
	return o
}

// parseNumber treats a blank value as zero. Non-finite values are rejected
// since they cannot be persisted.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("binding: non-finite number %q", s)
	}
	return n, nil
}

// boolField returns the value of a boolean option and a pointer to it.
func boolField(o *options.Options, key string) (bool, *bool) {
	var p *bool
	switch key {
	case "compact":
		p = &o.Compact
	case "controlFlowFlattening":
		p = &o.ControlFlowFlattening
	case "deadCodeInjection":
		p = &o.DeadCodeInjection
	case "stringArray":
		p = &o.StringArray
	case "rotateStringArray":
		p = &o.RotateStringArray
	case "simplify":
		p = &o.Simplify
	case "numbersToExpressions":
		p = &o.NumbersToExpressions
	case "renameGlobals":
		p = &o.RenameGlobals
	case "splitStrings":
		p = &o.SplitStrings
	case "unicodeEscapeSequence":
		p = &o.UnicodeEscapeSequence
	default:
		return false, nil
	}
	return *p, p
}

func numberField(o *options.Options, key string) (float64, *float64) {
	var p *float64
	switch key {
	case "stringArrayThreshold":
		p = &o.StringArrayThreshold
	case "splitStringsChunkLength":
		p = &o.SplitStringsChunkLength
	default:
		return 0, nil
	}
	return *p, p
}

func stringField(o *options.Options, key string) (string, *string) {
	var p *string
	switch key {
	case "identifierNamesGenerator":
		p = &o.IdentifierNamesGenerator
	case "target":
		p = &o.Target
	default:
		return "", nil
	}
	return *p, p
}
