// Package transform runs one obfuscation: it validates the input, checks the
// capability is present, calls it, and reports the outcome on a status sink.
// The call is synchronous; there is no cancellation, timeout or retry.
package transform

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"obfuscator-web/obfuscator"
	"obfuscator-web/options"
)

// Status messages.
const (
	MsgNothingToObfuscate = "Nothing to obfuscate. Paste or upload JS."
	MsgNotLoaded          = "Obfuscator library not loaded"
	MsgObfuscating        = "Obfuscating..."
	MsgDone               = "Done"
	ErrorPrefix           = "Error: "
)

// State is where an invocation ended.
type State string

const (
	Idle    State = "idle"
	Success State = "success"
	Failed  State = "failed"
)

// StatusSink receives status line updates.
type StatusSink interface {
	SetStatus(msg string, ok bool)
}

// Outcome is the result of Invoke. Output is meaningful only when State is
// Success. Empty is set when validation short-circuited; the caller clears
// the output buffer in that case.
type Outcome struct {
	State  State
	Output string
	Empty  bool
	Err    error
}

// Invoker calls the obfuscator. A nil obfuscator means the library is not
// loaded.
type Invoker struct {
	obf obfuscator.Obfuscator
	log *zap.Logger
}

func NewInvoker(obf obfuscator.Obfuscator, log *zap.Logger) *Invoker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invoker{obf: obf, log: log}
}

// Loaded reports whether an obfuscator is available.
func (inv *Invoker) Loaded() bool {
	return inv.obf != nil
}

// Invoke runs the obfuscator on input. readOptions is called once validation
// passes, before the capability check.
func (inv *Invoker) Invoke(input string, readOptions func() options.Options, status StatusSink) (out Outcome) {
	if strings.TrimSpace(input) == "" {
		status.SetStatus(MsgNothingToObfuscate, true)
		return Outcome{State: Idle, Empty: true}
	}

	opts := readOptions()
	if inv.obf == nil {
		status.SetStatus(MsgNotLoaded, false)
		return Outcome{State: Failed, Err: obfuscator.ErrNotLoaded}
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("obfuscator panic: %v", r)
			inv.log.Error("obfuscation panicked", zap.Any("panic", r))
			status.SetStatus(ErrorPrefix+err.Error(), false)
			out = Outcome{State: Failed, Err: err}
		}
	}()

	status.SetStatus(MsgObfuscating, true)
	res, err := inv.obf.Obfuscate(input, opts)
	if err == nil && res == nil {
		err = fmt.Errorf("obfuscator returned no result")
	}
	if err != nil {
		inv.log.Error("obfuscation failed", zap.Error(err), zap.Int("input_len", len(input)))
		status.SetStatus(ErrorPrefix+err.Error(), false)
		return Outcome{State: Failed, Err: err}
	}

	code := res.ObfuscatedCode()
	status.SetStatus(MsgDone, true)
	return Outcome{State: Success, Output: code}
}
