package options

// StorageKey is the key the options record is persisted under.
const StorageKey = "obfOptions"

// Identifier name generators understood by the obfuscator.
const (
	NamesHexadecimal     = "hexadecimal"
	NamesMangled         = "mangled"
	NamesMangledShuffled = "mangled-shuffled"
	NamesDictionary      = "dictionary"
)

// Targets understood by the obfuscator.
const (
	TargetBrowser       = "browser"
	TargetBrowserNoEval = "browser-no-eval"
	TargetNode          = "node"
)

// Options is the flat record of obfuscator options. JSON names are the
// obfuscator's own option keys.
type Options struct {
	Compact                  bool    `json:"compact"`
	ControlFlowFlattening    bool    `json:"controlFlowFlattening"`
	DeadCodeInjection        bool    `json:"deadCodeInjection"`
	StringArray              bool    `json:"stringArray"`
	StringArrayThreshold     float64 `json:"stringArrayThreshold"`
	RotateStringArray        bool    `json:"rotateStringArray"`
	Simplify                 bool    `json:"simplify"`
	NumbersToExpressions     bool    `json:"numbersToExpressions"`
	RenameGlobals            bool    `json:"renameGlobals"`
	IdentifierNamesGenerator string  `json:"identifierNamesGenerator"`
	SplitStrings             bool    `json:"splitStrings"`
	SplitStringsChunkLength  float64 `json:"splitStringsChunkLength"`
	UnicodeEscapeSequence    bool    `json:"unicodeEscapeSequence"`
	Target                   string  `json:"target"`
}

// Defaults returns the default option set.
func Defaults() Options {
	return Options{
		Compact:                  true,
		ControlFlowFlattening:    false,
		DeadCodeInjection:        false,
		StringArray:              true,
		StringArrayThreshold:     0.75,
		RotateStringArray:        true,
		Simplify:                 true,
		NumbersToExpressions:     false,
		RenameGlobals:            false,
		IdentifierNamesGenerator: NamesHexadecimal,
		SplitStrings:             false,
		SplitStringsChunkLength:  10,
		UnicodeEscapeSequence:    false,
		Target:                   TargetBrowser,
	}
}

// IdentifierNamesGenerators lists the values offered for
// identifierNamesGenerator.
func IdentifierNamesGenerators() []string {
	return []string{NamesHexadecimal, NamesMangled, NamesMangledShuffled, NamesDictionary}
}

// Targets lists the values offered for target.
func Targets() []string {
	return []string{TargetBrowser, TargetBrowserNoEval, TargetNode}
}

// Map returns the record keyed by option name, as handed to the obfuscator.
func (o Options) Map() map[string]any {
	return map[string]any{
		"compact":                  o.Compact,
		"controlFlowFlattening":    o.ControlFlowFlattening,
		"deadCodeInjection":        o.DeadCodeInjection,
		"stringArray":              o.StringArray,
		"stringArrayThreshold":     o.StringArrayThreshold,
		"rotateStringArray":        o.RotateStringArray,
		"simplify":                 o.Simplify,
		"numbersToExpressions":     o.NumbersToExpressions,
		"renameGlobals":            o.RenameGlobals,
		"identifierNamesGenerator": o.IdentifierNamesGenerator,
		"splitStrings":             o.SplitStrings,
		"splitStringsChunkLength":  o.SplitStringsChunkLength,
		"unicodeEscapeSequence":    o.UnicodeEscapeSequence,
		"target":                   o.Target,
	}
}
