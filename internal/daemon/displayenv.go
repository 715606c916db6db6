package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	runCommandOutputFn        = runCommandOutput
	readFileFn                = os.ReadFile
	readDirFn                 = os.ReadDir
	detectSessionX11EnvFn     = detectSessionX11Env
	detectDisplayFromSocketFn = detectDisplayFromSockets
)

// X11Env is the connection environment the daemon opens the display with.
type X11Env struct {
	Display    string
	XAuthority string
	// Source says where Display came from: env, config, session or socket.
	Source string
}

// ResolveX11Env works out DISPLAY and XAUTHORITY for a daemon started without
// a GUI environment (systemd user unit, ssh). An exported DISPLAY wins, then
// the configured one, then the user's login session, then the highest X
// socket.
func ResolveX11Env(env []string, configured string) (X11Env, error) {
	out := X11Env{
		Display:    strings.TrimSpace(envLookup(env, "DISPLAY")),
		XAuthority: strings.TrimSpace(envLookup(env, "XAUTHORITY")),
		Source:     "env",
	}

	if out.Display == "" && strings.TrimSpace(configured) != "" {
		out.Display = strings.TrimSpace(configured)
		out.Source = "config"
	}

	if out.Display == "" || out.XAuthority == "" {
		display, xauth := detectSessionX11EnvFn()
		if out.Display == "" && strings.TrimSpace(display) != "" {
			out.Display = strings.TrimSpace(display)
			out.Source = "session"
		}
		if out.XAuthority == "" {
			out.XAuthority = strings.TrimSpace(xauth)
		}
	}

	if out.Display == "" {
		out.Display = detectDisplayFromSocketFn("/tmp/.X11-unix")
		out.Source = "socket"
	}
	if out.Display == "" {
		return X11Env{}, fmt.Errorf("no X display found; export DISPLAY or set display in config (e.g. display: \":0\")")
	}

	if out.XAuthority == "" {
		home := strings.TrimSpace(envLookup(env, "HOME"))
		if home == "" {
			if detected, err := os.UserHomeDir(); err == nil {
				home = detected
			}
		}
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				out.XAuthority = candidate
			}
		}
	}
	return out, nil
}

// Apply exports the resolved values into the process environment.
func (e X11Env) Apply() error {
	if err := os.Setenv("DISPLAY", e.Display); err != nil {
		return err
	}
	if e.XAuthority != "" {
		return os.Setenv("XAUTHORITY", e.XAuthority)
	}
	return nil
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func detectSessionX11Env() (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, sessionID := range parseLoginctlSessions(out, uid) {
		d := loginctlShowSessionProp(sessionID, "Display")
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xauth := ""
		leader := loginctlShowSessionProp(sessionID, "Leader")
		if leader != "" && leader != "0" {
			if envMap, err := readProcEnviron(leader); err == nil {
				if ed := strings.TrimSpace(envMap["DISPLAY"]); ed != "" {
					d = ed
				}
				xauth = strings.TrimSpace(envMap["XAUTHORITY"])
			}
		}
		return d, xauth
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func loginctlShowSessionProp(sessionID string, prop string) string {
	out, err := runCommandOutputFn("loginctl", "show-session", sessionID, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env, nil
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}

	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}

func envLookup(env []string, key string) string {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix)
		}
	}
	return ""
}
