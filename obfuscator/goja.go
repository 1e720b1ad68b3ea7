package obfuscator

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"

	"obfuscator-web/options"
)

// GlobalName is the global the browser bundle installs itself under.
const GlobalName = "JavaScriptObfuscator"

// browserGlobals seeds the names a browser bundle expects to find.
const browserGlobals = `
var window = this;
var self = this;
`

// Goja runs a javascript-obfuscator bundle in a goja runtime. A goja runtime
// is not goroutine-safe, so calls are serialised.
type Goja struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	obfuscate goja.Callable
	this      goja.Value
}

// Load reads the bundle at path. An empty path or a missing file yields
// ErrNotLoaded.
func Load(path string) (*Goja, error) {
	if path == "" {
		return nil, ErrNotLoaded
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotLoaded, path)
		}
		return nil, fmt.Errorf("obfuscator: read bundle: %w", err)
	}
	return NewGoja(path, string(src))
}

// NewGoja evaluates bundle source and resolves JavaScriptObfuscator.obfuscate.
// name is used in script positions for error messages.
func NewGoja(name, src string) (*Goja, error) {
	vm := goja.New()
	if _, err := vm.RunString(browserGlobals); err != nil {
		return nil, fmt.Errorf("obfuscator: bootstrap globals: %w", err)
	}
	if _, err := vm.RunScript(name, src); err != nil {
		return nil, fmt.Errorf("obfuscator: evaluate bundle: %w", err)
	}

	global := vm.Get(GlobalName)
	if global == nil || goja.IsUndefined(global) || goja.IsNull(global) {
		return nil, fmt.Errorf("%w: bundle does not define %s", ErrNotLoaded, GlobalName)
	}
	obj := global.ToObject(vm)
	fn, ok := goja.AssertFunction(obj.Get("obfuscate"))
	if !ok {
		return nil, fmt.Errorf("%w: %s.obfuscate is not a function", ErrNotLoaded, GlobalName)
	}
	return &Goja{vm: vm, obfuscate: fn, this: obj}, nil
}

// Obfuscate calls obfuscate(code, opts).getObfuscatedCode().
func (g *Goja) Obfuscate(code string, opts options.Options) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	res, err := g.obfuscate(g.this, g.vm.ToValue(code), g.vm.ToValue(opts.Map()))
	if err != nil {
		return nil, g.scriptError(err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, &ScriptError{Message: "obfuscate returned no result"}
	}

	obj := res.ToObject(g.vm)
	get, ok := goja.AssertFunction(obj.Get("getObfuscatedCode"))
	if !ok {
		return nil, &ScriptError{Message: "result has no getObfuscatedCode"}
	}
	out, err := get(obj)
	if err != nil {
		return nil, g.scriptError(err)
	}
	return Code(out.String()), nil
}

// scriptError extracts the message of a thrown JS value. Caller must hold
// g.mu.
func (g *Goja) scriptError(err error) error {
	var exc *goja.Exception
	if !errors.As(err, &exc) {
		return &ScriptError{Message: err.Error(), cause: err}
	}
	val := exc.Value()
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return &ScriptError{Message: exc.Error(), cause: err}
	}
	if obj, ok := val.(*goja.Object); ok {
		// A falsy message, "" included, falls back to the value's string form.
		if msg := obj.Get("message"); msg != nil && msg.ToBoolean() {
			return &ScriptError{Message: msg.String(), cause: err}
		}
	}
	return &ScriptError{Message: val.String(), cause: err}
}
