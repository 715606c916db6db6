package palette

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/infopanel/internal/ipc"
)

// Daemon is the part of the control client the profile launcher drives.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListProfiles() (*ipc.ProfilesData, error)
	ShowProfile(id string) error
	HideProfile(id string) error
	CloseProfile(id string) error
	Fullscreen(id string) error
	SetFrameRate(fps int, persist bool) error
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

var frameRates = []int{15, 30, 60, 120}

// ProfileMenu builds the launcher tree: one submenu per profile, then the
// frame rate choices and reload.
func ProfileMenu(profiles []ipc.ProfileInfo, status *ipc.StatusData) []Entry {
	sessions := make(map[string]ipc.SessionInfo)
	current := 0
	if status != nil {
		current = status.TargetFrameRate
		for _, s := range status.Windows {
			sessions[s.ProfileID] = s
		}
	}

	entries := []Entry{{Label: "Profiles", Header: true}}
	for _, p := range profiles {
		s, open := sessions[p.ID]
		name := p.Name
		if name == "" {
			name = p.ID
		}
		state := "closed"
		switch {
		case open && s.HiddenByPlacement:
			state = "no monitor"
		case open && s.Visible:
			state = "shown"
		case open:
			state = "hidden"
		}

		actions := []Entry{{Label: "Show", Action: "show:" + p.ID, Icon: "view-reveal"}}
		if open {
			actions = append(actions,
				Entry{Label: "Hide", Action: "hide:" + p.ID, Icon: "view-conceal"},
				Entry{Label: "Fullscreen", Action: "fullscreen:" + p.ID, Icon: "view-fullscreen"},
				Entry{Label: "Close", Action: "close:" + p.ID, Icon: "window-close"},
			)
		}
		entries = append(entries, Entry{
			Label:    fmt.Sprintf("%s  (%s)", name, state),
			Icon:     "preferences-desktop-display",
			Meta:     strings.TrimSpace(p.ID + " " + p.Target),
			Active:   open && s.Visible && !s.HiddenByPlacement,
			Urgent:   open && s.HiddenByPlacement,
			Children: actions,
		})
	}

	rates := make([]Entry, 0, len(frameRates))
	for _, fps := range frameRates {
		rates = append(rates, Entry{
			Label:  fmt.Sprintf("%d fps", fps),
			Action: "fps:" + strconv.Itoa(fps),
			Active: fps == current,
		})
	}
	entries = append(entries,
		Entry{Label: "Daemon", Header: true},
		Entry{Label: fmt.Sprintf("Frame rate (%d fps)", current), Icon: "video-display", Children: rates},
		Entry{Label: "Reload config", Action: "reload", Icon: "view-refresh"},
	)
	return entries
}

// Apply runs an action picked from ProfileMenu and returns a short
// confirmation.
func Apply(d Daemon, action string) (string, error) {
	verb, arg, _ := strings.Cut(action, ":")
	var err error
	switch verb {
	case "show":
		err = d.ShowProfile(arg)
	case "hide":
		err = d.HideProfile(arg)
	case "close":
		err = d.CloseProfile(arg)
	case "fullscreen":
		err = d.Fullscreen(arg)
	case "fps":
		fps, convErr := strconv.Atoi(arg)
		if convErr != nil {
			return "", fmt.Errorf("invalid frame rate %q", arg)
		}
		err = d.SetFrameRate(fps, false)
	case "reload":
		err = d.Reload()
	default:
		return "", fmt.Errorf("unknown palette action %q", action)
	}
	if err != nil {
		return "", err
	}
	if arg == "" {
		return verb, nil
	}
	return verb + " " + arg, nil
}

// Launch asks the daemon for its profiles, shows the menu on b and applies
// the pick.
func Launch(d Daemon, b Backend) (string, error) {
	profiles, err := d.ListProfiles()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable: %w", err)
	}
	status, err := d.GetStatus()
	if err != nil {
		return "", fmt.Errorf("daemon not reachable: %w", err)
	}

	open := 0
	for _, w := range status.Windows {
		if w.Visible {
			open++
		}
	}
	menu := NewMenu(b, "infopanel", ProfileMenu(profiles.Profiles, status))
	menu.SetMessage(fmt.Sprintf("%d profiles • %d shown • %d fps", len(profiles.Profiles), open, status.TargetFrameRate))

	action, err := menu.Show()
	if err != nil {
		return "", err
	}
	return Apply(d, action)
}
