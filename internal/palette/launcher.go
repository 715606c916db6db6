package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

// launcher runs one dmenu-compatible program. Rows go in on stdin and the
// pick comes back on stdout, as a row index when byIndex is set and as the
// row text otherwise.
type launcher struct {
	name     string
	byIndex  bool
	markup   bool // rows are pango markup
	rowProps bool // rows accept \0key\x1fvalue properties
	fuzzy    bool

	run func(args []string, input string) (string, error)
}

// SetFuzzyMatching turns on fuzzy filtering where the launcher has it.
func (l *launcher) SetFuzzyMatching(on bool) {
	l.fuzzy = on
}

func (l *launcher) Select(prompt, message string, items []Item) (Item, error) {
	if len(items) == 0 {
		return Item{}, fmt.Errorf("palette: no items to show")
	}

	labels := l.labels(items)
	rows := make([]string, len(items))
	for i, it := range items {
		rows[i] = l.row(it, labels[i])
	}

	run := l.run
	if run == nil {
		run = l.exec
	}
	out, err := run(l.args(prompt, message, items), strings.Join(rows, "\n"))
	if err != nil {
		return Item{}, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Item{}, ErrCancelled
	}
	return l.parse(out, labels, items)
}

func (l *launcher) exec(args []string, input string) (string, error) {
	cmd := exec.Command(l.name, args...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return string(out), nil
	}
	// 1 is "nothing picked" for every launcher, 130 is Ctrl+C.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && (exitErr.ExitCode() == 1 || exitErr.ExitCode() == 130) {
		return "", ErrCancelled
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return "", fmt.Errorf("%s failed: %s", l.name, msg)
	}
	return "", fmt.Errorf("%s failed: %w", l.name, err)
}

func (l *launcher) args(prompt, message string, items []Item) []string {
	switch l.name {
	case "rofi":
		// -format i prints the row index, so labels may hold anything.
		args := []string{"-dmenu", "-i", "-p", prompt, "-format", "i", "-no-custom", "-markup-rows", "-show-icons"}
		if l.fuzzy {
			args = append(args, "-matching", "fuzzy")
		}
		if rows := matching(items, func(it Item) bool { return it.Active }); rows != "" {
			args = append(args, "-a", rows)
		}
		if rows := matching(items, func(it Item) bool { return it.Urgent }); rows != "" {
			args = append(args, "-u", rows)
		}
		if row := initialRow(items); row >= 0 {
			args = append(args, "-selected-row", strconv.Itoa(row))
		}
		if message != "" {
			args = append(args, "-mesg", message)
		}
		return args
	case "fuzzel":
		return []string{"--dmenu", "--index", "--prompt", prompt + " "}
	case "wofi":
		return []string{"--dmenu", "--prompt", prompt, "--allow-markup"}
	default:
		return []string{"-i", "-p", prompt}
	}
}

// labels returns the plain text of every row. Launchers that echo the row
// text get unique labels so the pick maps back to one item.
func (l *launcher) labels(items []Item) []string {
	out := make([]string, len(items))
	seen := make(map[string]int)
	for i, it := range items {
		label := oneLine(it.Label)
		if !l.byIndex && !it.Header && label != "" {
			if n := seen[label]; n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n+1)
			}
			seen[oneLine(it.Label)]++
		}
		out[i] = label
	}
	return out
}

func (l *launcher) row(it Item, label string) string {
	text := label
	if l.markup {
		text = html.EscapeString(text)
		if it.Header {
			text = "<b>" + text + "</b>"
		}
	}
	if !l.rowProps {
		return text
	}

	// One NUL, then key/value pairs split by \x1f.
	var props []string
	if it.Header {
		props = append(props, "nonselectable", "true")
	}
	if it.Icon != "" {
		props = append(props, "icon", propValue(it.Icon))
	}
	if it.Meta != "" {
		props = append(props, "meta", propValue(it.Meta))
	}
	if len(props) == 0 {
		return text
	}
	return text + "\x00" + strings.Join(props, "\x1f")
}

func (l *launcher) parse(out string, labels []string, items []Item) (Item, error) {
	if l.byIndex {
		if i, err := strconv.Atoi(out); err == nil {
			if i < 0 || i >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", i)
			}
			return items[i], nil
		}
	}
	for i, label := range labels {
		if label == out {
			return items[i], nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", out)
}

func matching(items []Item, pred func(Item) bool) string {
	var rows []string
	for i, it := range items {
		if !it.Header && pred(it) {
			rows = append(rows, strconv.Itoa(i))
		}
	}
	return strings.Join(rows, ",")
}

// initialRow is the first active row, else the first selectable one.
func initialRow(items []Item) int {
	first := -1
	for i, it := range items {
		if it.Header {
			continue
		}
		if it.Active {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func propValue(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\x00", " ", "\x1f", " ", "\r", " ", "\n", " ").Replace(s))
}
