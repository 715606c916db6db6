package palette

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Entry is a node of a nested menu. Entries with children open a submenu.
type Entry struct {
	Label    string
	Action   string
	Icon     string
	Meta     string
	Header   bool
	Active   bool
	Urgent   bool
	Children []Entry
}

// Menu shows a tree of entries one level at a time.
type Menu struct {
	backend Backend
	title   string
	message string
	root    []Entry
}

const (
	backAction    = "__back__"
	submenuPrefix = "__submenu__:"
)

func NewMenu(backend Backend, title string, root []Entry) *Menu {
	return &Menu{backend: backend, title: title, root: root}
}

// SetMessage sets the context line shown under the prompt.
func (m *Menu) SetMessage(msg string) {
	m.message = msg
}

// Show walks the menu until a leaf is picked and returns its action.
// Cancelling inside a submenu goes back one level; cancelling at the root
// returns ErrCancelled.
func (m *Menu) Show() (string, error) {
	return m.show(m.title, m.root, false)
}

func (m *Menu) show(prompt string, entries []Entry, nested bool) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("menu %q has no entries", prompt)
	}

	items := make([]Item, 0, len(entries)+1)
	if nested {
		items = append(items, Item{Label: "← Back", Action: backAction, Icon: "go-previous"})
	}
	for i, e := range entries {
		it := Item{
			Label:  e.Label,
			Action: e.Action,
			Icon:   e.Icon,
			Meta:   e.Meta,
			Header: e.Header,
			Active: e.Active,
			Urgent: e.Urgent,
		}
		if len(e.Children) > 0 {
			it.Label += " →"
			it.Action = submenuPrefix + strconv.Itoa(i)
		}
		items = append(items, it)
	}

	for {
		picked, err := m.backend.Select(prompt, m.message, items)
		if err != nil {
			return "", err
		}

		switch {
		case picked.Header || picked.Action == "":
			// dmenu and wofi cannot make rows unselectable.
			continue
		case picked.Action == backAction:
			return "", ErrCancelled
		case strings.HasPrefix(picked.Action, submenuPrefix):
			i, err := strconv.Atoi(strings.TrimPrefix(picked.Action, submenuPrefix))
			if err != nil || i < 0 || i >= len(entries) {
				continue
			}
			action, err := m.show(entries[i].Label, entries[i].Children, true)
			if errors.Is(err, ErrCancelled) {
				continue
			}
			return action, err
		default:
			return picked.Action, nil
		}
	}
}
