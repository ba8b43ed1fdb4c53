package displayenv

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestResolve_UsesExistingEnv(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)
	defer restore()

	env := []string{
		"HOME=" + t.TempDir(),
		"DISPLAY=:7",
		"XAUTHORITY=/tmp/xauth-existing",
	}

	got, err := Resolve(env, ":1", "/tmp/cfg")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Display != ":7" || got.XAuthority != "/tmp/xauth-existing" || got.Source != "environment" {
		t.Fatalf("Resolve = %+v", got)
	}
}

func TestResolve_UsesConfigAndFallsBackToHomeXAuthority(t *testing.T) {
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

	got, err := Resolve([]string{"HOME=" + home}, ":1", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Display != ":1" || got.Source != "config" {
		t.Fatalf("DISPLAY = %q (%s), want :1 from config", got.Display, got.Source)
	}
	if got.XAuthority != xauth {
		t.Fatalf("XAUTHORITY = %q, want %q", got.XAuthority, xauth)
	}
}

func TestResolve_UsesDetectedSession(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return "" },
	)
	defer restore()

	got, err := Resolve([]string{"HOME=" + t.TempDir()}, "", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Display != ":5" || got.XAuthority != "/tmp/xauth-detected" || got.Source != "session" {
		t.Fatalf("Resolve = %+v", got)
	}
}

func TestResolve_FallsBackToSocket(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return ":3" },
	)
	defer restore()

	got, err := Resolve([]string{"HOME=" + t.TempDir()}, "", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got.Display != ":3" || got.Source != "socket" || got.XAuthority != "" {
		t.Fatalf("Resolve = %+v", got)
	}
}

func TestResolve_ReturnsClearErrorWhenDisplayUnavailable(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	_, err := Resolve([]string{"HOME=" + t.TempDir()}, "", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no X display found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApply_ExportsDisplay(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	t.Setenv("DISPLAY", "")
	t.Setenv("XAUTHORITY", "")
	t.Setenv("HOME", t.TempDir())

	env, err := Apply(":4", "/tmp/xauth-cfg")
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if env.Display != ":4" {
		t.Fatalf("Apply = %+v", env)
	}
	if got := os.Getenv("DISPLAY"); got != ":4" {
		t.Fatalf("DISPLAY = %q, want :4", got)
	}
	if got := os.Getenv("XAUTHORITY"); got != "/tmp/xauth-cfg" {
		t.Fatalf("XAUTHORITY = %q, want /tmp/xauth-cfg", got)
	}
}

func TestDetectSessionX11Env_ReadsLeaderEnviron(t *testing.T) {
	origRun, origRead := runCommandOutputFn, readFileFn
	defer func() {
		runCommandOutputFn, readFileFn = origRun, origRead
	}()

	uid := os.Getuid()
	runCommandOutputFn = func(name string, args ...string) (string, error) {
		switch {
		case len(args) > 0 && args[0] == "list-sessions":
			return "c2 " + strconv.Itoa(uid) + " user seat0\n", nil
		case len(args) > 3 && args[3] == "Display":
			return ":0\n", nil
		case len(args) > 3 && args[3] == "Leader":
			return "4242\n", nil
		}
		return "", errors.New("unexpected command")
	}
	readFileFn = func(path string) ([]byte, error) {
		if path != "/proc/4242/environ" {
			return nil, os.ErrNotExist
		}
		return []byte("DISPLAY=:1\x00XAUTHORITY=/run/user/1000/gdm/Xauthority\x00"), nil
	}

	display, xauth := detectSessionX11Env()
	if display != ":1" || xauth != "/run/user/1000/gdm/Xauthority" {
		t.Fatalf("detectSessionX11Env = %q, %q", display, xauth)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want %q", got, ":2")
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
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("parseLoginctlSessions = %v, want [1 3]", got)
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
