package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/palette"
)

func runPalette(args []string) int {
	fs := flag.NewFlagSet("palette", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/infopanel/config.yaml)")
	backendName := fs.String("backend", "", "Launcher to use: auto, "+strings.Join(palette.Names(), ", ")+" (default: palette_backend)")
	fuzzy := fs.Bool("fuzzy", false, "Fuzzy matching (rofi only)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: infopanel palette [--path PATH] [--backend NAME] [--fuzzy]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Pick a profile action from a launcher menu:")
		fmt.Fprintln(os.Stderr, "  <profile>     Show, hide, fullscreen or close its window")
		fmt.Fprintln(os.Stderr, "  Frame rate    Set the target frame rate (not persisted)")
		fmt.Fprintln(os.Stderr, "  Reload        Re-read the config file")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	name := *backendName
	if name == "" {
		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		name = res.Config.PaletteBackend
	}

	backend, err := palette.NewBackend(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if f, ok := backend.(interface{ SetFuzzyMatching(bool) }); ok {
		f.SetFuzzyMatching(*fuzzy)
	}

	msg, err := palette.Launch(ipc.NewClient(), backend)
	if errors.Is(err, palette.ErrCancelled) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(msg)
	return 0
}
