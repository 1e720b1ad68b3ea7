package transform_test

import (
	"errors"
	"strings"
	"testing"

	"obfuscator-web/obfuscator"
	"obfuscator-web/options"
	"obfuscator-web/transform"
)

type recorder struct {
	msgs []string
	oks  []bool
}

func (r *recorder) SetStatus(msg string, ok bool) {
	r.msgs = append(r.msgs, msg)
	r.oks = append(r.oks, ok)
}

func (r *recorder) last() (string, bool) {
	if len(r.msgs) == 0 {
		return "", false
	}
	return r.msgs[len(r.msgs)-1], r.oks[len(r.oks)-1]
}

func defaults() options.Options { return options.Defaults() }

func TestInvokeEmptyInputSkipsCapability(t *testing.T) {
	called := false
	inv := transform.NewInvoker(obfuscator.Func(func(string, options.Options) (string, error) {
		called = true
		return "x", nil
	}), nil)

	for _, input := range []string{"", "   ", "\n\t "} {
		rec := &recorder{}
		readCalled := false
		out := inv.Invoke(input, func() options.Options { readCalled = true; return defaults() }, rec)
		if !out.Empty || out.State != transform.Idle {
			t.Fatalf("input %q: unexpected outcome %+v", input, out)
		}
		if msg, ok := rec.last(); msg != transform.MsgNothingToObfuscate || !ok {
			t.Fatalf("unexpected status %q ok=%v", msg, ok)
		}
		if readCalled {
			t.Fatal("options must not be read for empty input")
		}
	}
	if called {
		t.Fatal("capability must not be called for empty input")
	}
}

func TestInvokeNotLoaded(t *testing.T) {
	inv := transform.NewInvoker(nil, nil)
	if inv.Loaded() {
		t.Fatal("nil obfuscator must report not loaded")
	}
	rec := &recorder{}
	out := inv.Invoke("var a=1;", defaults, rec)
	if out.State != transform.Failed || !errors.Is(out.Err, obfuscator.ErrNotLoaded) {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if msg, ok := rec.last(); msg != transform.MsgNotLoaded || ok {
		t.Fatalf("unexpected status %q ok=%v", msg, ok)
	}
	if len(rec.msgs) != 1 {
		t.Fatalf("expected no Obfuscating... status, got %v", rec.msgs)
	}
}

func TestInvokeSuccess(t *testing.T) {
	var gotOpts options.Options
	inv := transform.NewInvoker(obfuscator.Func(func(code string, o options.Options) (string, error) {
		gotOpts = o
		return "var _0x1=1;", nil
	}), nil)

	want := defaults()
	want.RenameGlobals = true
	rec := &recorder{}
	out := inv.Invoke("var a=1;", func() options.Options { return want }, rec)
	if out.State != transform.Success || out.Output != "var _0x1=1;" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if gotOpts != want {
		t.Fatalf("capability got %+v, want %+v", gotOpts, want)
	}
	if strings.Join(rec.msgs, "|") != "Obfuscating...|Done" {
		t.Fatalf("unexpected status sequence %v", rec.msgs)
	}
}

func TestInvokeError(t *testing.T) {
	inv := transform.NewInvoker(obfuscator.Func(func(string, options.Options) (string, error) {
		return "", &obfuscator.ScriptError{Message: "Unexpected token"}
	}), nil)
	rec := &recorder{}
	out := inv.Invoke("var a=;", defaults, rec)
	if out.State != transform.Failed || out.Output != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if msg, ok := rec.last(); msg != "Error: Unexpected token" || ok {
		t.Fatalf("unexpected status %q ok=%v", msg, ok)
	}
}

func TestInvokePanicIsCaught(t *testing.T) {
	inv := transform.NewInvoker(obfuscator.Func(func(string, options.Options) (string, error) {
		panic("kaboom")
	}), nil)
	rec := &recorder{}
	out := inv.Invoke("var a=1;", defaults, rec)
	if out.State != transform.Failed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if msg, ok := rec.last(); !strings.HasPrefix(msg, transform.ErrorPrefix) || ok {
		t.Fatalf("unexpected status %q ok=%v", msg, ok)
	}
}
