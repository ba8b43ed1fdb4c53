package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/term"

	"github.com/1broseidon/spaces/internal/ipc"
	"github.com/1broseidon/spaces/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "desktops":
		os.Exit(runDesktops(os.Args[2:]))
	case "toggle":
		os.Exit(runSimple("toggle", "Toggle a fullscreen space for the active window.", os.Args[2:], func(c *ipc.Client) error {
			return c.ToggleFullscreen()
		}))
	case "left", "right":
		dir := os.Args[1]
		os.Exit(runSimple(dir, "Switch to the desktop on the "+dir+" with the sweep animation.", os.Args[2:], func(c *ipc.Client) error {
			return c.Switch(dir)
		}))
	case "exit-all":
		os.Exit(runSimple("exit-all", "Return every fullscreen window to its original desktop.", os.Args[2:], func(c *ipc.Client) error {
			return c.ExitAll()
		}))
	case "reload":
		os.Exit(runSimple("reload", "Reload the daemon configuration.", os.Args[2:], func(c *ipc.Client) error {
			return c.Reload()
		}))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: spaces <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the spaces daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  list                List fullscreen spaces")
	fmt.Fprintln(w, "  desktops            Show desktops and which space owns each")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  toggle              Toggle a fullscreen space for the active window")
	fmt.Fprintln(w, "  left                Switch one desktop left")
	fmt.Fprintln(w, "  right               Switch one desktop right")
	fmt.Fprintln(w, "  exit-all            Exit every fullscreen space")
	fmt.Fprintln(w, "  reload              Reload daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'spaces <command> --help' for command-specific options.")
}

// parseNoArgs parses flags for a command that takes no positional arguments.
// It returns -1 when the command should proceed.
func parseNoArgs(fs *flag.FlagSet, name string, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}
	return -1
}

func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spaces %s\n", name)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
		fs.PrintDefaults()
	}
	return fs
}

func runSimple(name, summary string, args []string, call func(*ipc.Client) error) int {
	fs := newFlagSet(name, summary)
	if code := parseNoArgs(fs, name, args); code >= 0 {
		return code
	}
	if err := call(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "Show daemon status via IPC.")
	if code := parseNoArgs(fs, "status", args); code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running:   %v\n", status.DaemonRunning)
	fmt.Printf("spaces:           %d\n", status.SpaceCount)
	fmt.Printf("desktops:         %d\n", status.DesktopCount)
	fmt.Printf("current_desktop:  %d\n", status.CurrentDesktop)
	if status.Display != "" {
		fmt.Printf("display:          %s\n", status.Display)
	}
	fmt.Printf("events_processed: %d\n", status.EventsProcessed)
	fmt.Printf("queue_depth:      %d\n", status.QueueDepth)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	return 0
}

func runList(args []string) int {
	fs := newFlagSet("list", "List fullscreen spaces tracked by the daemon.")
	asJSON := fs.Bool("json", false, "Print JSON")
	if code := parseNoArgs(fs, "list", args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListSpaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data)
	}

	width := 0
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}
	writeSpaces(os.Stdout, data.Spaces, width)
	return 0
}

// writeSpaces prints one space per line. A positive width means a terminal:
// columns are aligned and titles cut to fit.
func writeSpaces(w io.Writer, spaces []ipc.SpaceInfo, width int) {
	if width <= 0 {
		for _, s := range spaces {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", platform.WindowID(s.Window), s.OriginalDesktop, s.CreatedDesktop, s.Title)
		}
		return
	}

	if len(spaces) == 0 {
		fmt.Fprintln(w, "no fullscreen spaces")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tORIGINAL\tDESKTOP\tTITLE")
	// window column plus two desktop columns and padding
	titleWidth := width - 10 - 2 - 8 - 2 - 7 - 2
	for _, s := range spaces {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", platform.WindowID(s.Window), s.OriginalDesktop, s.CreatedDesktop, truncate(s.Title, titleWidth))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func runDesktops(args []string) int {
	fs := newFlagSet("desktops", "Show virtual desktops and the fullscreen space owning each.")
	asJSON := fs.Bool("json", false, "Print JSON")
	if code := parseNoArgs(fs, "desktops", args); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().DesktopInfo()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(data)
	}
	writeDesktops(os.Stdout, data)
	return 0
}

func writeDesktops(w io.Writer, data *ipc.DesktopsData) {
	for _, d := range data.Desktops {
		marker := " "
		if d.Current {
			marker = "*"
		}
		line := fmt.Sprintf("%s %d", marker, d.Index)
		if d.Owner != 0 {
			line += " space:" + platform.WindowID(d.Owner).String()
		}
		fmt.Fprintln(w, line)
	}
	var edges []string
	if !data.CanSwitchLeft {
		edges = append(edges, "first")
	}
	if !data.CanSwitchRight {
		edges = append(edges, "last")
	}
	if len(edges) > 0 {
		fmt.Fprintf(w, "current desktop is %s\n", strings.Join(edges, " and "))
	}
}

func printJSON(v any) int {
	data, err := json.Marshal(v, jsontext.WithIndent("  "), json.Deterministic(true))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
