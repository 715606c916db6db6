package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/infopanel/internal/config"
)

type saveRecorder struct {
	mu    sync.Mutex
	saves []*config.Config
	fail  error
}

func (r *saveRecorder) save(cfg *config.Config, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.saves = append(r.saves, cfg)
	return nil
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func (r *saveRecorder) last() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	return r.saves[len(r.saves)-1]
}

func (r *saveRecorder) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	stats := config.DefaultProfile("stats")
	stats.Target = config.TargetConfig{Name: "HDMI-1"}
	stats.WindowX, stats.WindowY = 100, 50
	stats.Items = []config.ItemConfig{
		{ID: "bg", Kind: "rect", Width: 320, Height: 200, Color: "#202020"},
		{ID: "label", Kind: "text", X: 8, Y: 8, Width: 100, Height: 20, Text: "cpu"},
	}
	clock := config.DefaultProfile("clock")
	clock.Visible = false
	clock.Items = []config.ItemConfig{
		{ID: "a", Kind: "rect", Width: 10, Height: 10},
		{ID: "b", Kind: "rect", Width: 10, Height: 10},
	}
	cfg.Profiles = []config.ProfileConfig{stats, clock}
	return cfg
}

func TestPersister_CommitAndFlush(t *testing.T) {
	rec := &saveRecorder{}
	base := testConfig()
	p := NewPersister(PersisterConfig{Path: "/tmp/x.yaml", Save: rec.save}, base)

	prof := base.Profiles[0].ToProfile(base.GridSize)
	prof.Width = 640
	p.Commit(prof)
	prof.Width = 1

	if !p.Dirty() {
		t.Fatalf("expected dirty after commit")
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if p.Dirty() {
		t.Fatalf("expected clean after flush")
	}

	got, ok := rec.last().Profile("stats")
	if !ok || got.Width != 640 {
		t.Fatalf("expected committed width 640, got %+v", got)
	}
	if base.Profiles[0].Width != config.DefaultProfileWidth {
		t.Fatalf("base config mutated")
	}

	if err := p.Flush(); err != nil || rec.count() != 1 {
		t.Fatalf("expected clean flush to skip the write, saves=%d err=%v", rec.count(), err)
	}
}

func TestPersister_FlushFailureKeepsDirty(t *testing.T) {
	rec := &saveRecorder{}
	rec.setFail(errors.New("disk full"))
	p := NewPersister(PersisterConfig{Save: rec.save}, testConfig())

	p.Update(func(c *config.Config) { c.TargetFrameRate = 30 })
	if err := p.Flush(); err == nil {
		t.Fatalf("expected save error")
	}
	if !p.Dirty() {
		t.Fatalf("expected failed write to stay dirty")
	}

	rec.setFail(nil)
	if err := p.Flush(); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if rec.last().TargetFrameRate != 30 {
		t.Fatalf("expected retried write to carry the change")
	}
}

func TestPersister_RunCoalesces(t *testing.T) {
	rec := &saveRecorder{}
	p := NewPersister(PersisterConfig{Delay: 30 * time.Millisecond, Save: rec.save}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for fps := 10; fps <= 50; fps += 10 {
		v := fps
		p.Update(func(c *config.Config) { c.TargetFrameRate = v })
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one coalesced write, got %d", rec.count())
	}
	if rec.last().TargetFrameRate != 50 {
		t.Fatalf("expected last value 50, got %d", rec.last().TargetFrameRate)
	}

	p.Update(func(c *config.Config) { c.GridSize = 4 })
	cancel()
	<-done
	if rec.last().GridSize != 4 {
		t.Fatalf("expected final flush on shutdown")
	}
}

func TestPersister_ReplaceDropsPending(t *testing.T) {
	rec := &saveRecorder{}
	p := NewPersister(PersisterConfig{Save: rec.save}, testConfig())

	p.Update(func(c *config.Config) { c.TargetFrameRate = 5 })
	fresh := testConfig()
	fresh.TargetFrameRate = 90
	p.Replace(fresh)
	fresh.TargetFrameRate = 1

	if p.Dirty() {
		t.Fatalf("expected replace to clear pending changes")
	}
	if got := p.Config().TargetFrameRate; got != 90 {
		t.Fatalf("expected replaced document, got rate %d", got)
	}
	if err := p.Flush(); err != nil || rec.count() != 0 {
		t.Fatalf("expected no write after replace, saves=%d err=%v", rec.count(), err)
	}
}
