package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/infopanel/internal/ipc"
)

type fakeDaemon struct {
	calls []string
	fail  error
}

func (f *fakeDaemon) record(s string) error {
	f.calls = append(f.calls, s)
	return f.fail
}

func (f *fakeDaemon) Ping() error { return f.record("ping") }
func (f *fakeDaemon) Reload() error { return f.record("reload") }

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	return &ipc.StatusData{TargetFrameRate: 60, DaemonRunning: true}, f.record("status")
}

func (f *fakeDaemon) GetMonitors() (*ipc.MonitorsData, error) {
	return &ipc.MonitorsData{Monitors: []ipc.MonitorInfo{{Name: "DP-1", Width: 2560, Height: 1440}}}, f.record("monitors")
}

func (f *fakeDaemon) ListProfiles() (*ipc.ProfilesData, error) {
	return &ipc.ProfilesData{Profiles: []ipc.ProfileInfo{{ID: "stats", Open: true}}}, f.record("profiles")
}

func (f *fakeDaemon) ShowProfile(id string) error { return f.record("show " + id) }
func (f *fakeDaemon) HideProfile(id string) error { return f.record("hide " + id) }
func (f *fakeDaemon) CloseProfile(id string) error { return f.record("close " + id) }
func (f *fakeDaemon) Fullscreen(id string) error { return f.record("fullscreen " + id) }

func (f *fakeDaemon) SetFrameRate(fps int, persist bool) error {
	if persist {
		return f.record("rate persist")
	}
	return f.record("rate")
}

func (f *fakeDaemon) ResolvePlacement(id string) (*ipc.PlacementData, error) {
	return &ipc.PlacementData{ProfileID: id, Found: true, Match: "exact", Monitor: "DP-1"}, f.record("resolve " + id)
}

func (f *fakeDaemon) ListItems(id string) (*ipc.ItemsData, error) {
	return &ipc.ItemsData{ProfileID: id, Items: []ipc.ItemInfo{{ID: "bg", Kind: "rect"}}}, f.record("items " + id)
}

func (f *fakeDaemon) ReorderItem(profileID, itemID, position string) error {
	return f.record("reorder " + profileID + " " + itemID + " " + position)
}

func TestProfileActions(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)
	ctx := context.Background()

	if _, out, err := s.handleShowProfile(ctx, nil, ProfileInput{ProfileID: " stats "}); err != nil || !out.OK || out.ProfileID != "stats" {
		t.Fatalf("show: out=%+v err=%v", out, err)
	}
	if _, _, err := s.handleHideProfile(ctx, nil, ProfileInput{ProfileID: "stats"}); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if _, _, err := s.handleFullscreen(ctx, nil, ProfileInput{ProfileID: "stats"}); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	if _, _, err := s.handleCloseProfile(ctx, nil, ProfileInput{ProfileID: "stats"}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := s.handleShowProfile(ctx, nil, ProfileInput{}); err == nil {
		t.Fatalf("expected missing profile_id error")
	}

	want := []string{"show stats", "hide stats", "fullscreen stats", "close stats"}
	if diff := cmp.Diff(want, d.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileActionPropagatesDaemonError(t *testing.T) {
	d := &fakeDaemon{fail: errors.New("daemon error: unknown profile")}
	s := NewServer(d, nil)

	_, _, err := s.handleShowProfile(context.Background(), nil, ProfileInput{ProfileID: "ghost"})
	if err == nil || !strings.Contains(err.Error(), "unknown profile") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}

func TestQueryTools(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)
	ctx := context.Background()

	_, status, err := s.handleGetStatus(ctx, nil, EmptyInput{})
	if err != nil || status.Status.TargetFrameRate != 60 {
		t.Fatalf("status: %+v %v", status, err)
	}
	_, monitors, err := s.handleListMonitors(ctx, nil, EmptyInput{})
	if err != nil || len(monitors.Monitors) != 1 {
		t.Fatalf("monitors: %+v %v", monitors, err)
	}
	_, profiles, err := s.handleListProfiles(ctx, nil, EmptyInput{})
	if err != nil || len(profiles.Profiles) != 1 {
		t.Fatalf("profiles: %+v %v", profiles, err)
	}
	_, placement, err := s.handleResolvePlacement(ctx, nil, ProfileInput{ProfileID: "stats"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantPlacement := ipc.PlacementData{ProfileID: "stats", Found: true, Match: "exact", Monitor: "DP-1"}
	if diff := cmp.Diff(wantPlacement, placement.Placement); diff != "" {
		t.Fatalf("placement mismatch (-want +got):\n%s", diff)
	}
	_, items, err := s.handleListItems(ctx, nil, ProfileInput{ProfileID: "stats"})
	if err != nil || items.ProfileID != "stats" || len(items.Items) != 1 {
		t.Fatalf("items: %+v %v", items, err)
	}
}

func TestSetFrameRateValidation(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)
	ctx := context.Background()

	for _, fps := range []int{0, -5, 241} {
		if _, _, err := s.handleSetFrameRate(ctx, nil, SetFrameRateInput{FPS: fps}); err == nil {
			t.Fatalf("expected fps %d to be rejected", fps)
		}
	}
	_, out, err := s.handleSetFrameRate(ctx, nil, SetFrameRateInput{FPS: 30, Persist: true})
	if err != nil || !strings.Contains(out.Message, "saved") {
		t.Fatalf("set rate: %+v %v", out, err)
	}
	if diff := cmp.Diff([]string{"rate persist"}, d.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestReorderItemNormalizesPosition(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)
	ctx := context.Background()

	if _, _, err := s.handleReorderItem(ctx, nil, ReorderItemInput{ProfileID: "stats", ItemID: "bg", Position: " Top "}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if _, _, err := s.handleReorderItem(ctx, nil, ReorderItemInput{ProfileID: "stats", ItemID: "bg", Position: "left"}); err == nil {
		t.Fatalf("expected invalid position error")
	}
	if _, _, err := s.handleReorderItem(ctx, nil, ReorderItemInput{ProfileID: "stats", Position: "up"}); err == nil {
		t.Fatalf("expected missing item_id error")
	}
	if diff := cmp.Diff([]string{"reorder stats bg top"}, d.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}
