// Command tilewmd is the tiling window manager daemon and its control CLI
// (spec §6): run with no arguments to start the daemon in the foreground,
// or with a subcommand to talk to an already-running daemon over IPC.
//
// Grounded on the teacher's cmd/termtile/main.go: a hand-rolled
// switch-on-os.Args[1] subcommand dispatch with one flag.NewFlagSet per
// subcommand, kept instead of a CLI framework per SPEC_FULL.md (a flag
// framework has no second command surface to justify here either).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hatchwm/tilewm/internal/automation"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/daemon"
	"github.com/hatchwm/tilewm/internal/inspector"
	"github.com/hatchwm/tilewm/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		runDaemon()
		return
	}

	switch os.Args[1] {
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "--focus-workspace":
		os.Exit(runFocusWorkspace(os.Args[2:]))
	case "--list-workspaces":
		os.Exit(runListWorkspaces(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "inspector":
		os.Exit(runInspector(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown argument: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tilewmd [command]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Running with no command starts the daemon in the foreground.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status                  Show daemon status")
	fmt.Fprintln(w, "  --focus-workspace <n>   Switch the active monitor to workspace n")
	fmt.Fprintln(w, "  --list-workspaces       List the active monitor's workspaces")
	fmt.Fprintln(w, "  reload                  Ask the daemon to reload its config file")
	fmt.Fprintln(w, "  inspector               Open the read-only workspace inspector TUI")
	fmt.Fprintln(w, "  mcp serve               Start the automation MCP server (stdio transport)")
}

func runDaemon() {
	configPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("tilewmd: resolve config path: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	d, err := daemon.New(configPath, logger)
	if err != nil {
		log.Fatalf("tilewmd: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("tilewmd: shutting down")
		d.Close()
		os.Exit(0)
	}()

	if err := d.Run(); err != nil {
		log.Fatalf("tilewmd: %v", err)
	}
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "Usage: tilewmd status") }
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("active workspace: %d\n", status.ActiveWorkspace)
	fmt.Printf("tiled: %d  floating: %d\n", status.TiledCount, status.FloatingCount)
	fmt.Printf("uptime: %ds\n", status.UptimeSeconds)
	return 0
}

func runFocusWorkspace(args []string) int {
	fs := flag.NewFlagSet("--focus-workspace", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "Usage: tilewmd --focus-workspace <1-9>") }
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	var n int
	if _, err := fmt.Sscanf(fs.Arg(0), "%d", &n); err != nil {
		fmt.Fprintf(os.Stderr, "invalid workspace number %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().FocusWorkspace(n); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runListWorkspaces(args []string) int {
	fs := flag.NewFlagSet("--list-workspaces", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "Usage: tilewmd --list-workspaces") }
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	data, err := ipc.NewClient().ListWorkspaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("monitor: %s\n", data.Monitor)
	for _, ws := range data.Workspaces {
		marker := " "
		if ws.Active {
			marker = "*"
		}
		fmt.Printf("%s %d  %d window(s)\n", marker, ws.Number, ws.WindowCount)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "Usage: tilewmd reload") }
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runInspector(args []string) int {
	fs := flag.NewFlagSet("inspector", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintln(os.Stderr, "Usage: tilewmd inspector") }
	if err := fs.Parse(args); err != nil {
		return exitCodeFor(err)
	}
	if _, err := tea.NewProgram(inspector.New(), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMCP(args []string) int {
	if len(args) == 0 || args[0] != "serve" {
		fmt.Fprintln(os.Stderr, "Usage: tilewmd mcp serve")
		return 2
	}
	if err := automation.New().ServeStdio(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func exitCodeFor(err error) int {
	if err == flag.ErrHelp {
		return 0
	}
	return 2
}
