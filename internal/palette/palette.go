// Package palette drives dmenu-style launchers (rofi, fuzzel, wofi, dmenu)
// to pick profile actions without opening a terminal.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the user closes the launcher without picking.
var ErrCancelled = errors.New("palette cancelled")

// Item is one row shown by a launcher.
type Item struct {
	Label  string
	Action string // returned on selection
	Icon   string // icon name, rofi only
	Meta   string // hidden search keywords
	Header bool   // section title, not selectable
	Active bool
	Urgent bool
}

// Backend shows items and returns the one the user picked.
type Backend interface {
	Select(prompt, message string, items []Item) (Item, error)
}

// Detection order for "auto".
var launchers = []launcher{
	{name: "rofi", byIndex: true, markup: true, rowProps: true},
	{name: "fuzzel", byIndex: true},
	{name: "wofi", markup: true},
	{name: "dmenu"},
}

var lookPath = exec.LookPath

// Names lists the supported launcher names in detection order.
func Names() []string {
	out := make([]string, 0, len(launchers))
	for _, l := range launchers {
		out = append(out, l.name)
	}
	return out
}

// NewBackend returns the launcher called name. An empty name or "auto" picks
// the first one found in PATH.
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		for _, l := range launchers {
			if _, err := lookPath(l.name); err == nil {
				return &l, nil
			}
		}
		return nil, fmt.Errorf("no palette backend found in PATH (looked for: %s)", strings.Join(Names(), ", "))
	}

	for _, l := range launchers {
		if l.name != name {
			continue
		}
		if _, err := lookPath(l.name); err != nil {
			return nil, fmt.Errorf("palette backend %q not found in PATH", name)
		}
		return &l, nil
	}
	return nil, fmt.Errorf("unknown palette backend: %q (expected: auto, %s)", name, strings.Join(Names(), ", "))
}
