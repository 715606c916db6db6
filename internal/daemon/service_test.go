package daemon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/platform"
)

type serviceHarness struct {
	backend *loopBackend
	persist *Persister
	svc     *Service
	loads   []*config.Config
}

func newServiceHarness(t *testing.T, cfg *config.Config) *serviceHarness {
	t.Helper()
	h := &serviceHarness{backend: newLoopBackend(t, dp1, hdmi1)}
	h.persist = NewPersister(PersisterConfig{Save: func(*config.Config, string) error { return nil }}, cfg)
	h.svc = NewService(ServiceConfig{
		Backend:   h.backend,
		Monitors:  h.backend.registry(),
		Config:    cfg,
		Path:      "/tmp/infopanel-test.yaml",
		Persister: h.persist,
		Draw:      nopDraw,
		Load: func(string) (*config.Config, error) {
			if len(h.loads) == 0 {
				return testConfig(), nil
			}
			next := h.loads[0]
			h.loads = h.loads[1:]
			return next, nil
		},
	})
	t.Cleanup(func() {
		_ = h.svc.Manager().Do(context.Background(), func() error {
			h.svc.Shutdown()
			return nil
		})
	})
	return h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h *serviceHarness) showConfigured(t *testing.T) {
	t.Helper()
	err := h.svc.Manager().Do(testCtx(t), func() error {
		h.svc.ShowConfigured()
		return nil
	})
	if err != nil {
		t.Fatalf("show configured: %v", err)
	}
}

func (h *serviceHarness) openIDs(t *testing.T) []string {
	t.Helper()
	var ids []string
	_ = h.svc.Manager().Do(testCtx(t), func() error {
		ids = h.svc.Manager().IDs()
		return nil
	})
	return ids
}

func TestService_ShowConfiguredAndStatus(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)

	if diff := cmp.Diff([]string{"stats"}, h.openIDs(t)); diff != "" {
		t.Fatalf("open windows mismatch (-want +got):\n%s", diff)
	}

	status, err := h.svc.Status(testCtx(t))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Profiles != 2 || status.TargetFrameRate != config.DefaultTargetFrameRate {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Windows) != 1 {
		t.Fatalf("expected one window, got %+v", status.Windows)
	}
	w := status.Windows[0]
	if w.ProfileID != "stats" || !w.Visible || w.X != 2020 || w.Y != 50 {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestService_ResolvePlacement(t *testing.T) {
	h := newServiceHarness(t, testConfig())

	got, err := h.svc.ResolvePlacement(testCtx(t), "stats")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := ipc.PlacementData{ProfileID: "stats", Found: true, Match: "name", Monitor: "HDMI-1", X: 2020, Y: 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("placement mismatch (-want +got):\n%s", diff)
	}

	if _, err := h.svc.ResolvePlacement(testCtx(t), "ghost"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}

func TestService_HideShowCloseCommit(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)
	ctx := testCtx(t)

	if err := h.svc.HideProfile(ctx, "stats"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if pc, _ := h.persist.Config().Profile("stats"); pc.Visible {
		t.Fatalf("expected hidden profile persisted as not visible")
	}
	if diff := cmp.Diff([]string{"stats"}, h.openIDs(t)); diff != "" {
		t.Fatalf("hide must keep the window open (-want +got):\n%s", diff)
	}

	if err := h.svc.ShowProfile(ctx, "clock"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if pc, _ := h.persist.Config().Profile("clock"); !pc.Visible {
		t.Fatalf("expected shown profile persisted as visible")
	}

	if err := h.svc.CloseProfile(ctx, "stats"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if diff := cmp.Diff([]string{"clock"}, h.openIDs(t)); diff != "" {
		t.Fatalf("open windows mismatch (-want +got):\n%s", diff)
	}

	if err := h.svc.HideProfile(ctx, "stats"); err == nil {
		t.Fatalf("expected hiding a closed profile to fail")
	}
	if err := h.svc.Fullscreen(ctx, "stats"); err == nil || !strings.Contains(err.Error(), "not open") {
		t.Fatalf("expected fullscreen on closed profile to fail, got %v", err)
	}
}

func TestService_Fullscreen(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)

	if err := h.svc.Fullscreen(testCtx(t), "stats"); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	pc, _ := h.persist.Config().Profile("stats")
	if pc.Width != 1920 || pc.Height != 1080 || pc.WindowX != 0 || pc.WindowY != 0 {
		t.Fatalf("expected monitor-sized profile, got %+v", pc)
	}
}

func TestService_ReorderClosedProfile(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	ctx := testCtx(t)

	err := h.svc.ReorderItem(ctx, ipc.ReorderItemPayload{ProfileID: "clock", ItemID: "b", Position: ipc.ReorderTop})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	items, err := h.svc.Items(ctx, "clock")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	pc, _ := h.persist.Config().Profile("clock")
	if pc.Items[0].ID != "b" {
		t.Fatalf("expected reorder persisted, got %+v", pc.Items)
	}

	err = h.svc.ReorderItem(ctx, ipc.ReorderItemPayload{ProfileID: "clock", ItemID: "zzz", Position: ipc.ReorderUp})
	if err == nil {
		t.Fatalf("expected unknown item error")
	}
}

func TestService_ReorderOpenWindow(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)
	ctx := testCtx(t)

	err := h.svc.ReorderItem(ctx, ipc.ReorderItemPayload{ProfileID: "stats", ItemID: "label", Position: ipc.ReorderUp})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	pc, _ := h.persist.Config().Profile("stats")
	if len(pc.Items) != 2 || pc.Items[0].ID != "label" {
		t.Fatalf("expected label moved to index 0, got %+v", pc.Items)
	}
}

func TestService_SetFrameRate(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)
	ctx := testCtx(t)

	if err := h.svc.SetFrameRate(ctx, 24, false); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if h.persist.Dirty() {
		t.Fatalf("non-persistent rate change must not dirty the document")
	}
	status, _ := h.svc.Status(ctx)
	if status.TargetFrameRate != 24 || status.Windows[0].TargetRate != 24 {
		t.Fatalf("expected rate 24 applied, got %+v", status)
	}

	if err := h.svc.SetFrameRate(ctx, 30, true); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if got := h.persist.Config().TargetFrameRate; got != 30 {
		t.Fatalf("expected persisted rate 30, got %d", got)
	}
}

func TestService_Reload(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)

	next := testConfig()
	next.TargetFrameRate = 20
	next.Profiles = next.Profiles[1:]
	next.Profiles[0].Visible = true
	h.loads = append(h.loads, next)

	var reloaded *config.Config
	h.svc.onReload = func(cfg *config.Config) { reloaded = cfg }

	if err := h.svc.Reload(testCtx(t)); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff([]string{"clock"}, h.openIDs(t)); diff != "" {
		t.Fatalf("open windows mismatch (-want +got):\n%s", diff)
	}
	if reloaded == nil || reloaded.TargetFrameRate != 20 {
		t.Fatalf("expected reload hook with new config")
	}
	if h.svc.Config().TargetFrameRate != 20 || h.persist.Config().TargetFrameRate != 20 {
		t.Fatalf("expected reloaded config to replace the documents")
	}

	profiles, err := h.svc.Profiles(testCtx(t))
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	want := []ipc.ProfileInfo{{
		ID:         "clock",
		Name:       "clock",
		Width:      config.DefaultProfileWidth,
		Height:     config.DefaultProfileHeight,
		RenderMode: string(platform.RenderSoftware),
		Open:       true,
		Items:      2,
	}}
	if diff := cmp.Diff(want, profiles); diff != "" {
		t.Fatalf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Monitors(t *testing.T) {
	h := newServiceHarness(t, testConfig())

	got, err := h.svc.Monitors(testCtx(t))
	if err != nil {
		t.Fatalf("monitors: %v", err)
	}
	want := []ipc.MonitorInfo{
		{ID: 0, Name: "DP-1", Width: 1920, Height: 1080},
		{ID: 1, Name: "HDMI-1", X: 1920, Width: 1920, Height: 1080},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("monitors mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ToggleAll(t *testing.T) {
	h := newServiceHarness(t, testConfig())
	h.showConfigured(t)

	visible := func() map[string]bool {
		out := map[string]bool{}
		status, err := h.svc.Status(testCtx(t))
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		for _, w := range status.Windows {
			out[w.ProfileID] = w.Visible
		}
		return out
	}

	toggle := func() {
		_ = h.svc.Manager().Do(testCtx(t), func() error {
			h.svc.ToggleAll()
			return nil
		})
	}

	toggle()
	if diff := cmp.Diff(map[string]bool{"stats": false}, visible()); diff != "" {
		t.Fatalf("after hide-all (-want +got):\n%s", diff)
	}
	toggle()
	if diff := cmp.Diff(map[string]bool{"stats": true, "clock": true}, visible()); diff != "" {
		t.Fatalf("after show-all (-want +got):\n%s", diff)
	}
}
