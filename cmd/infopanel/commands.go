package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/1broseidon/infopanel/internal/ipc"
)

// newFlagSet builds a flag set whose usage prints usage and desc.
func newFlagSet(name, usage, desc string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: infopanel "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, desc)
	}
	return fs
}

// parseFlags returns -1 when parsing succeeded, otherwise the exit code.
func parseFlags(fs *flag.FlagSet, args []string, nargs int) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != nargs {
		fmt.Fprintf(os.Stderr, "%s takes %d argument(s)\n", fs.Name(), nargs)
		fs.Usage()
		return 2
	}
	return -1
}

func writeJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "status [--json]", "Show daemon status and every open profile window.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return writeJSON(os.Stdout, status)
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running:    %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "config_path:       %s\n", status.ConfigPath)
	fmt.Fprintf(w, "target_frame_rate: %d\n", status.TargetFrameRate)
	fmt.Fprintf(w, "profiles:          %d\n", status.Profiles)
	fmt.Fprintf(w, "uptime_seconds:    %d\n", status.UptimeSeconds)
	if len(status.Windows) == 0 {
		return
	}
	fmt.Fprintln(w, "")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tMODE\tBOUNDS\tVISIBLE\tFPS\tRESIZE")
	for _, win := range status.Windows {
		visible := strconv.FormatBool(win.Visible)
		if win.HiddenByPlacement {
			visible = "no monitor"
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d+%d+%d\t%s\t%.1f/%d\t%s\n",
			win.ProfileID, win.Mode, win.Width, win.Height, win.X, win.Y,
			visible, win.RealizedFPS, win.TargetRate, win.ResizeState)
	}
	tw.Flush()
}

func runMonitors(args []string) int {
	fs := newFlagSet("monitors", "monitors [--json]", "List attached monitors in virtual screen coordinates.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return writeJSON(os.Stdout, data.Monitors)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBOUNDS")
	for _, m := range data.Monitors {
		fmt.Fprintf(tw, "%d\t%s\t%dx%d+%d+%d\n", m.ID, m.Name, m.Width, m.Height, m.X, m.Y)
	}
	tw.Flush()
	return 0
}

func runProfiles(args []string) int {
	fs := newFlagSet("profiles", "profiles [--json]", "List configured profiles and whether their window is open.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListProfiles()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return writeJSON(os.Stdout, data.Profiles)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tOFFSET\tTARGET\tMODE\tOPEN\tITEMS")
	for _, p := range data.Profiles {
		target := p.Target
		if p.StrictMatching {
			target += " (strict)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d,%d\t%s\t%s\t%v\t%d\n",
			p.ID, p.Name, p.Width, p.Height, p.WindowX, p.WindowY, target, p.RenderMode, p.Open, p.Items)
	}
	tw.Flush()
	return 0
}

func runProfileAction(action string, args []string) int {
	fs := newFlagSet(action, action+" <profile>", profileActionHelp[action])
	if code := parseFlags(fs, args, 1); code >= 0 {
		return code
	}

	client := ipc.NewClient()
	id := fs.Arg(0)
	var err error
	switch action {
	case "show":
		err = client.ShowProfile(id)
	case "hide":
		err = client.HideProfile(id)
	case "close":
		err = client.CloseProfile(id)
	case "fullscreen":
		err = client.Fullscreen(id)
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

var profileActionHelp = map[string]string{
	"show":       "Open a profile's window, or unhide it when it is hidden.",
	"hide":       "Hide a profile's window without closing it.",
	"close":      "Close a profile's window and release its resources.",
	"fullscreen": "Resize an open window to cover its monitor. The new size is saved.",
}

func runFrameRate(args []string) int {
	fs := newFlagSet("fps", "fps [--persist] <fps>", "Set the target frame rate of every profile window.")
	persist := fs.Bool("persist", false, "Also write the rate to the config file")
	if code := parseFlags(fs, args, 1); code >= 0 {
		return code
	}
	fps, err := strconv.Atoi(fs.Arg(0))
	if err != nil || fps < 1 || fps > 240 {
		fmt.Fprintf(os.Stderr, "fps must be a number between 1 and 240, got %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().SetFrameRate(fps, *persist); err != nil {
		return fail(err)
	}
	return 0
}

func runPlacement(args []string) int {
	fs := newFlagSet("placement", "placement [--json] <profile>", "Report which monitor a profile resolves to and its window origin.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code := parseFlags(fs, args, 1); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ResolvePlacement(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return writeJSON(os.Stdout, data)
	}
	printPlacement(os.Stdout, data)
	return 0
}

func printPlacement(w io.Writer, p *ipc.PlacementData) {
	if !p.Found {
		fmt.Fprintf(w, "%s: no monitor qualifies, window stays hidden\n", p.ProfileID)
		return
	}
	fmt.Fprintf(w, "%s: %s match on %s at %d,%d\n", p.ProfileID, p.Match, p.Monitor, p.X, p.Y)
}

func runItems(args []string) int {
	fs := newFlagSet("items", "items [--json] <profile>", "Print a profile's item tree in z-order, first drawn first.")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if code := parseFlags(fs, args, 1); code >= 0 {
		return code
	}

	data, err := ipc.NewClient().ListItems(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return writeJSON(os.Stdout, data.Items)
	}
	printItems(os.Stdout, data.Items, 0)
	return 0
}

func printItems(w io.Writer, items []ipc.ItemInfo, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		var flags []string
		if it.Hidden {
			flags = append(flags, "hidden")
		}
		if it.Locked {
			flags = append(flags, "locked")
		}
		if it.Selected {
			flags = append(flags, "selected")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintf(w, "%s%s %s %dx%d+%d+%d%s\n", indent, it.Kind, it.ID, it.Width, it.Height, it.X, it.Y, suffix)
		printItems(w, it.Children, depth+1)
	}
}

func runReorder(args []string) int {
	fs := newFlagSet("reorder", "reorder <profile> <item> up|down|top|bottom",
		"Move an item within its sibling list. top is index 0, drawn first.")
	if code := parseFlags(fs, args, 3); code >= 0 {
		return code
	}
	position := strings.ToLower(fs.Arg(2))
	switch position {
	case ipc.ReorderUp, ipc.ReorderDown, ipc.ReorderTop, ipc.ReorderBottom:
	default:
		fmt.Fprintf(os.Stderr, "position must be one of up, down, top, bottom; got %q\n", fs.Arg(2))
		return 2
	}
	if err := ipc.NewClient().ReorderItem(fs.Arg(0), fs.Arg(1), position); err != nil {
		return fail(err)
	}
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "reload", "Ask the daemon to re-read its config file.")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}
