// Package displayenv finds the X session a daemon started outside of it
// (systemd user unit, ssh, cron) should connect to.
package displayenv

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

// Env is a resolved X session environment.
type Env struct {
	Display    string
	XAuthority string
	// Source names where Display came from: environment, config, session or
	// socket.
	Source string
}

// Resolve fills in DISPLAY and XAUTHORITY missing from env. Lookup order is
// env, the configured values, the loginctl session leader environment, the
// highest /tmp/.X11-unix socket and finally ~/.Xauthority.
func Resolve(env []string, display, xauthority string) (Env, error) {
	out := Env{
		Display:    strings.TrimSpace(envLookup(env, "DISPLAY")),
		XAuthority: strings.TrimSpace(envLookup(env, "XAUTHORITY")),
		Source:     "environment",
	}

	if out.Display == "" {
		out.Display = strings.TrimSpace(display)
		out.Source = "config"
	}
	if out.XAuthority == "" {
		out.XAuthority = strings.TrimSpace(xauthority)
	}

	if out.Display == "" || out.XAuthority == "" {
		detectedDisplay, detectedXAuthority := detectSessionX11EnvFn()
		if out.Display == "" {
			out.Display = strings.TrimSpace(detectedDisplay)
			out.Source = "session"
		}
		if out.XAuthority == "" {
			out.XAuthority = strings.TrimSpace(detectedXAuthority)
		}
	}

	if out.Display == "" {
		out.Display = detectDisplayFromSocketFn("/tmp/.X11-unix")
		out.Source = "socket"
	}
	if out.Display == "" {
		return Env{}, fmt.Errorf("no X display found; export DISPLAY or set display in config (e.g. display: \":0\")")
	}

	if out.XAuthority == "" {
		home := strings.TrimSpace(envLookup(env, "HOME"))
		if home == "" {
			if detectedHome, err := os.UserHomeDir(); err == nil {
				home = detectedHome
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

// Apply resolves against the process environment and exports the result so
// the X connection picks it up.
func Apply(display, xauthority string) (Env, error) {
	env, err := Resolve(os.Environ(), display, xauthority)
	if err != nil {
		return Env{}, err
	}
	if err := os.Setenv("DISPLAY", env.Display); err != nil {
		return Env{}, err
	}
	if env.XAuthority != "" {
		if err := os.Setenv("XAUTHORITY", env.XAuthority); err != nil {
			return Env{}, err
		}
	}
	return env, nil
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
		d := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Display"))
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xauth := ""
		leader := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Leader"))
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

// detectDisplayFromSockets picks the highest numbered X socket in dir.
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
