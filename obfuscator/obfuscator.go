// Package obfuscator defines the external JavaScript obfuscation capability
// and hosts the javascript-obfuscator browser bundle in an embedded runtime.
package obfuscator

import (
	"errors"

	"obfuscator-web/options"
)

// ErrNotLoaded is returned when no obfuscator bundle is available.
var ErrNotLoaded = errors.New("obfuscator library not loaded")

// Result is the outcome of one obfuscation.
type Result interface {
	ObfuscatedCode() string
}

// Obfuscator transforms JavaScript source according to opts.
type Obfuscator interface {
	Obfuscate(code string, opts options.Options) (Result, error)
}

// Code is a Result holding plain text.
type Code string

func (c Code) ObfuscatedCode() string { return string(c) }

// Func adapts a plain function to the Obfuscator interface.
type Func func(code string, opts options.Options) (string, error)

func (f Func) Obfuscate(code string, opts options.Options) (Result, error) {
	out, err := f(code, opts)
	if err != nil {
		return nil, err
	}
	return Code(out), nil
}

// ScriptError is an error thrown by the JavaScript side.
type ScriptError struct {
	// Message is the thrown error's message property, or the thrown value
	// itself when it is not an Error object.
	Message string
	cause   error
}

func (e *ScriptError) Error() string { return e.Message }

func (e *ScriptError) Unwrap() error { return e.cause }
