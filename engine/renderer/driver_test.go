package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cubeworks/prism/engine/gui"
)

// fakeBackend implements every driver collaborator and records the call
// sequence so tests can assert ordering and slot discipline.
type fakeBackend struct {
	log []string

	acquireStale   map[int]bool // tick number -> stale
	presentStale   map[int]bool
	tick           int
	nextImage      uint32
	inFlight       [FramesInFlight]bool
	slotW, slotH   [FramesInFlight]uint32
	slotTex        [FramesInFlight]gui.TextureID
	displayW       uint32
	displayH       uint32
	resized        bool
	overlayTexture gui.TextureID
	panelW, panelH uint32
	recreates      int
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		acquireStale: map[int]bool{},
		presentStale: map[int]bool{},
		displayW:     1600,
		displayH:     900,
		panelW:       1280,
		panelH:       720,
	}
	for i := range f.slotTex {
		f.slotW[i] = 1280
		f.slotH[i] = 720
		f.slotTex[i] = uuid.New()
	}
	return f
}

func (f *fakeBackend) record(ev string, args ...any) {
	f.log = append(f.log, fmt.Sprintf(ev, args...))
}

func (f *fakeBackend) count(prefix string) int {
	n := 0
	for _, ev := range f.log {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) Acquire(slot int) (uint32, bool, error) {
	f.record("acquire slot=%d", slot)
	if f.acquireStale[f.tick] {
		return 0, true, nil
	}
	img := f.nextImage
	f.nextImage = (f.nextImage + 1) % 3
	return img, false, nil
}

func (f *fakeBackend) Present(slot int, imageIndex uint32) (bool, error) {
	f.record("present slot=%d image=%d", slot, imageIndex)
	return f.presentStale[f.tick], nil
}

func (f *fakeBackend) Recreate(w, h uint32) error {
	f.record("recreate %dx%d", w, h)
	f.recreates++
	return nil
}

func (f *fakeBackend) SlotSize(slot int) (uint32, uint32) {
	return f.slotW[slot], f.slotH[slot]
}

func (f *fakeBackend) ResizeSlot(slot int, w, h uint32) (gui.TextureID, error) {
	if f.inFlight[slot] {
		return gui.TextureID{}, fmt.Errorf("slot %d resized while in flight", slot)
	}
	f.record("resize slot=%d %dx%d", slot, w, h)
	f.slotW[slot] = w
	f.slotH[slot] = h
	f.slotTex[slot] = uuid.New()
	return f.slotTex[slot], nil
}

func (f *fakeBackend) SlotTexture(slot int) gui.TextureID {
	return f.slotTex[slot]
}

func (f *fakeBackend) WaitSlot(slot int) error {
	f.record("wait slot=%d", slot)
	f.inFlight[slot] = false
	return nil
}

func (f *fakeBackend) Begin(slot int) error {
	f.record("begin slot=%d", slot)
	return nil
}

func (f *fakeBackend) Submit(slot int) error {
	if f.inFlight[slot] {
		return fmt.Errorf("slot %d submitted while already in flight", slot)
	}
	f.record("submit slot=%d", slot)
	f.inFlight[slot] = true
	return nil
}

func (f *fakeBackend) Record(slot int, elapsed float64) error {
	f.record("scene slot=%d", slot)
	return nil
}

type fakeComposer struct{ f *fakeBackend }

func (c fakeComposer) Compose(slot int, imageIndex uint32, list *gui.DrawList) error {
	c.f.record("compose slot=%d image=%d", slot, imageIndex)
	return nil
}

type fakeOverlay struct{ f *fakeBackend }

func (o fakeOverlay) Begin(w, h uint32, sx, sy float32) { o.f.record("gui begin %dx%d", w, h) }
func (o fakeOverlay) DesiredPanelSize() (uint32, uint32) {
	return o.f.panelW, o.f.panelH
}
func (o fakeOverlay) SetViewportTexture(id gui.TextureID) { o.f.overlayTexture = id }
func (o fakeOverlay) BuildFrame() *gui.DrawList           { return &gui.DrawList{} }

func (f *fakeBackend) FramebufferSize() (uint32, uint32) { return f.displayW, f.displayH }
func (f *fakeBackend) ContentScale() (float32, float32)  { return 1, 1 }
func (f *fakeBackend) ConsumeResized() bool {
	r := f.resized
	f.resized = false
	return r
}

func newDriver(f *fakeBackend) *FrameDriver {
	return &FrameDriver{
		Surface:  f,
		Targets:  f,
		Ring:     f,
		Scene:    f,
		Composer: fakeComposer{f},
		Overlay:  fakeOverlay{f},
		Display:  f,
	}
}

func runTicks(t *testing.T, d *FrameDriver, f *fakeBackend, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f.tick = i
		if err := d.Tick(float64(i) / 60); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
}

func TestSlotsAlternateOverManyTicks(t *testing.T) {
	f := newFakeBackend()
	d := newDriver(f)

	for i := 0; i < 120; i++ {
		f.tick = i
		want := i % FramesInFlight
		if d.FrameIndex() != want {
			t.Fatalf("tick %d uses slot %d, want %d", i, d.FrameIndex(), want)
		}
		if err := d.Tick(float64(i) / 60); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if f.recreates != 0 {
		t.Errorf("no recreation expected, got %d", f.recreates)
	}
	if got := f.count("submit"); got != 120 {
		t.Errorf("%d submissions over 120 ticks, want 120", got)
	}
}

func TestTickOrdering(t *testing.T) {
	f := newFakeBackend()
	runTicks(t, newDriver(f), f, 1)

	want := []string{
		"wait slot=0",
		"acquire slot=0",
		"gui begin 1600x900",
		"begin slot=0",
		"scene slot=0",
		"compose slot=0 image=0",
		"submit slot=0",
		"present slot=0 image=0",
	}
	if len(f.log) != len(want) {
		t.Fatalf("log %v, want %v", f.log, want)
	}
	for i := range want {
		if f.log[i] != want[i] {
			t.Fatalf("step %d = %q, want %q\nfull log: %v", i, f.log[i], want[i], f.log)
		}
	}
}

func TestPanelResizeRebuildsSlotsIndependently(t *testing.T) {
	f := newFakeBackend()
	d := newDriver(f)

	runTicks(t, d, f, 4)

	// Shrink the panel mid-run. Each slot must be rebuilt on the tick it
	// is used, never while the other slot's frame may still be in flight.
	f.panelW, f.panelH = 640, 480
	texBefore := [FramesInFlight]gui.TextureID{f.slotTex[0], f.slotTex[1]}

	f.log = nil
	f.tick = 4
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if f.slotW[0] != 640 || f.slotH[0] != 480 {
		t.Fatalf("slot 0 is %dx%d, want 640x480", f.slotW[0], f.slotH[0])
	}
	if f.slotW[1] != 1280 || f.slotH[1] != 720 {
		t.Fatalf("slot 1 resized early to %dx%d", f.slotW[1], f.slotH[1])
	}
	if f.overlayTexture != f.slotTex[0] || f.slotTex[0] == texBefore[0] {
		t.Fatal("new slot 0 texture was not registered with the overlay")
	}

	f.tick = 5
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if f.slotW[1] != 640 || f.slotH[1] != 480 {
		t.Fatalf("slot 1 is %dx%d, want 640x480", f.slotW[1], f.slotH[1])
	}
	if f.slotTex[1] == texBefore[1] {
		t.Fatal("slot 1 kept its old texture after resize")
	}

	// Steady state again: no further resizes.
	f.log = nil
	runTicksFrom(t, d, f, 6, 4)
	for _, ev := range f.log {
		if ev[:4] == "resi" {
			t.Fatalf("unexpected resize in steady state: %v", f.log)
		}
	}
}

func runTicksFrom(t *testing.T, d *FrameDriver, f *fakeBackend, start, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f.tick = start + i
		if err := d.Tick(0); err != nil {
			t.Fatalf("tick %d: %v", start+i, err)
		}
	}
}

func TestStaleAcquireSkipsTick(t *testing.T) {
	f := newFakeBackend()
	f.acquireStale[2] = true
	d := newDriver(f)

	runTicks(t, d, f, 2)
	f.log = nil
	f.tick = 2
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}

	if f.recreates != 1 {
		t.Fatalf("recreates = %d, want 1", f.recreates)
	}
	for _, ev := range f.log {
		switch ev {
		case "scene slot=0", "submit slot=0", "present slot=0 image=0":
			t.Fatalf("stale acquire must skip rendering, saw %q", ev)
		}
	}
	// The skipped tick must not advance the slot ring.
	if d.FrameIndex() != 0 {
		t.Fatalf("frame index advanced to %d on a skipped tick", d.FrameIndex())
	}

	// Next tick renders normally on the same slot.
	f.tick = 3
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if d.FrameIndex() != 1 {
		t.Fatalf("frame index = %d after a successful tick, want 1", d.FrameIndex())
	}
}

func TestStalePresentRecreatesAndAdvances(t *testing.T) {
	f := newFakeBackend()
	f.presentStale[0] = true
	d := newDriver(f)

	runTicks(t, d, f, 1)
	if f.recreates != 1 {
		t.Fatalf("recreates = %d, want 1", f.recreates)
	}
	if d.FrameIndex() != 1 {
		t.Fatalf("frame index = %d, want 1; the frame was presented", d.FrameIndex())
	}
}

func TestWindowResizeTriggersRecreate(t *testing.T) {
	f := newFakeBackend()
	d := newDriver(f)

	runTicks(t, d, f, 1)
	f.resized = true
	f.displayW, f.displayH = 800, 600
	f.tick = 1
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if f.recreates != 1 {
		t.Fatalf("recreates = %d, want 1", f.recreates)
	}
	last := f.log[len(f.log)-1]
	if last != "recreate 800x600" {
		t.Fatalf("last event %q, want recreate at the new size", last)
	}
}

func TestRecreateSkippedWhileMinimized(t *testing.T) {
	f := newFakeBackend()
	f.acquireStale[0] = true
	f.displayW, f.displayH = 0, 0
	d := newDriver(f)

	f.tick = 0
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if f.recreates != 0 {
		t.Fatalf("recreated with a zero-area surface, recreates = %d", f.recreates)
	}
}
