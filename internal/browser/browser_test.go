package browser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type recorder struct {
	name string
	args []string
	err  error
}

func (r *recorder) start(name string, args ...string) error {
	r.name = name
	r.args = args
	return r.err
}

func TestCommandOpenerPlatforms(t *testing.T) {
	url := "https://github.com/octo/widgets/commit/abc"
	tests := []struct {
		goos    string
		command string
		want    []string
	}{
		{"linux", "", []string{"xdg-open", url}},
		{"darwin", "", []string{"open", url}},
		{"windows", "", []string{"rundll32", "url.dll,FileProtocolHandler", url}},
		{"linux", "firefox --new-tab", []string{"firefox", "--new-tab", url}},
		{"plan9", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.command, func(t *testing.T) {
			o := &CommandOpener{Command: tt.command, goos: tt.goos}
			got := o.argv(url)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("argv = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandOpenerRuns(t *testing.T) {
	rec := &recorder{}
	o := &CommandOpener{goos: "linux", start: rec.start}
	if err := o.Open("https://example.com"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec.name != "xdg-open" || len(rec.args) != 1 || rec.args[0] != "https://example.com" {
		t.Errorf("ran %s %v", rec.name, rec.args)
	}

	o = &CommandOpener{goos: "plan9", start: rec.start}
	if err := o.Open("https://example.com"); !errors.Is(err, ErrNoOpener) {
		t.Errorf("expected ErrNoOpener, got %v", err)
	}
}

func TestEnvOpener(t *testing.T) {
	rec := &recorder{}
	o := &EnvOpener{getenv: func(string) string { return "lynx -dump" }, start: rec.start}
	if err := o.Open("https://example.com"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec.name != "lynx" || !reflect.DeepEqual(rec.args, []string{"-dump", "https://example.com"}) {
		t.Errorf("ran %s %v", rec.name, rec.args)
	}

	o = &EnvOpener{getenv: func(string) string { return "" }, start: rec.start}
	if err := o.Open("https://example.com"); !errors.Is(err, ErrNoOpener) {
		t.Errorf("expected ErrNoOpener, got %v", err)
	}
}

type stubOpener struct {
	err   error
	calls int
}

func (s *stubOpener) Open(string) error {
	s.calls++
	return s.err
}

func TestFallback(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		p, s := &stubOpener{}, &stubOpener{}
		if err := (Fallback{Primary: p, Secondary: s}).Open("u"); err != nil {
			t.Fatalf("Open: %v", err)
		}
		if p.calls != 1 || s.calls != 0 {
			t.Errorf("calls = %d/%d, want 1/0", p.calls, s.calls)
		}
	})

	t.Run("secondary used", func(t *testing.T) {
		p, s := &stubOpener{err: errors.New("boom")}, &stubOpener{}
		if err := (Fallback{Primary: p, Secondary: s}).Open("u"); err != nil {
			t.Fatalf("Open: %v", err)
		}
		if s.calls != 1 {
			t.Errorf("secondary calls = %d, want 1", s.calls)
		}
	})

	t.Run("both fail", func(t *testing.T) {
		p, s := &stubOpener{err: errors.New("boom")}, &stubOpener{err: errors.New("bang")}
		err := (Fallback{Primary: p, Secondary: s}).Open("u")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "bang") {
			t.Errorf("error %q should name both failures", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if err := (Fallback{}).Open("u"); !errors.Is(err, ErrNoOpener) {
			t.Errorf("expected ErrNoOpener, got %v", err)
		}
	})
}

func TestCopyToClipboard(t *testing.T) {
	var buf bytes.Buffer
	if err := CopyToClipboard("abc123", &buf); err != nil {
		t.Fatalf("CopyToClipboard: %v", err)
	}
	want := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte("abc123")) + "\a"
	if buf.String() != want {
		t.Errorf("wrote %q, want %q", buf.String(), want)
	}
}
