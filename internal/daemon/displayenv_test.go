package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveX11Env_ExportedDisplayWins(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)
	defer restore()

	env := []string{"HOME=" + t.TempDir(), "DISPLAY=:7", "XAUTHORITY=/tmp/xauth-existing"}
	got, err := ResolveX11Env(env, ":1")
	if err != nil {
		t.Fatalf("ResolveX11Env: %v", err)
	}
	want := X11Env{Display: ":7", XAuthority: "/tmp/xauth-existing", Source: "env"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveX11Env_ConfigAndHomeXAuthority(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}

	got, err := ResolveX11Env([]string{"HOME=" + home}, " :1 ")
	if err != nil {
		t.Fatalf("ResolveX11Env: %v", err)
	}
	want := X11Env{Display: ":1", XAuthority: xauth, Source: "config"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveX11Env_SessionThenSocket(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return ":9" },
	)
	got, err := ResolveX11Env([]string{"HOME=" + t.TempDir()}, "")
	restore()
	if err != nil {
		t.Fatalf("ResolveX11Env: %v", err)
	}
	if got.Display != ":5" || got.XAuthority != "/tmp/xauth-detected" || got.Source != "session" {
		t.Fatalf("unexpected session env %+v", got)
	}

	restore = stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return ":9" },
	)
	defer restore()
	got, err = ResolveX11Env([]string{"HOME=" + t.TempDir()}, "")
	if err != nil {
		t.Fatalf("ResolveX11Env: %v", err)
	}
	if got.Display != ":9" || got.Source != "socket" {
		t.Fatalf("unexpected socket env %+v", got)
	}
}

func TestResolveX11Env_NoDisplay(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	_, err := ResolveX11Env([]string{"HOME=" + t.TempDir()}, "")
	if err == nil || !strings.Contains(err.Error(), "no X display found") {
		t.Fatalf("expected missing display error, got %v", err)
	}
}

func TestDetectSessionX11Env_ReadsLeaderEnviron(t *testing.T) {
	origRun, origRead := runCommandOutputFn, readFileFn
	defer func() { runCommandOutputFn, readFileFn = origRun, origRead }()

	uid := os.Getuid()
	runCommandOutputFn = func(name string, args ...string) (string, error) {
		switch strings.Join(args, " ") {
		case "list-sessions --no-legend":
			return "4 99999 other seat0\n7 " + strconv.Itoa(uid) + " me seat0\n", nil
		case "show-session 7 -p Display --value":
			return ":0\n", nil
		case "show-session 7 -p Leader --value":
			return "1234\n", nil
		}
		return "", errors.New("unexpected command")
	}
	readFileFn = func(path string) ([]byte, error) {
		if path != "/proc/1234/environ" {
			return nil, os.ErrNotExist
		}
		return []byte("HOME=/home/me\x00DISPLAY=:1\x00XAUTHORITY=/run/user/1000/xauth\x00"), nil
	}

	display, xauth := detectSessionX11Env()
	if display != ":1" || xauth != "/run/user/1000/xauth" {
		t.Fatalf("got display=%q xauth=%q", display, xauth)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want %q", got, ":2")
	}
	if got := detectDisplayFromSockets(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("expected empty display for missing dir, got %q", got)
	}
}

func TestParseLoginctlSessions(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"3 1000 george seat1",
		"",
	}, "\n")
	got := parseLoginctlSessions(out, "1000")
	if diff := cmp.Diff([]string{"1", "3"}, got); diff != "" {
		t.Fatalf("sessions mismatch (-want +got):\n%s", diff)
	}
}

func stubDetectFns(
	detectSession func() (string, string),
	detectSocket func(string) string,
) func() {
	origSession := detectSessionX11EnvFn
	origSocket := detectDisplayFromSocketFn
	detectSessionX11EnvFn = detectSession
	detectDisplayFromSocketFn = detectSocket
	return func() {
		detectSessionX11EnvFn = origSession
		detectDisplayFromSocketFn = origSocket
	}
}
