package engine

import (
	"testing"
	"time"

	"soundstage/pkg/registry"
)

func TestNarrationSequencing(t *testing.T) {
	e, clk := newTestEngine(t, testSounds(), testConfig())

	// Opening: Hello (pre-delay 0.25s, 1s clip), Bye (pre-delay 0.5s, 0.5s clip)
	ch := e.PlayNarration("Opening", PlayOptions{})
	if ch == nil {
		t.Fatal("PlayNarration returned nil")
	}
	if ch.State() != StatePlaying {
		t.Fatalf("state = %v, want %v", ch.State(), StatePlaying)
	}
	if ch.Clip() != nil {
		t.Fatal("line started before its pre-delay")
	}

	clk.advance(100 * time.Millisecond)
	e.Update()
	if ch.Clip() != nil {
		t.Fatal("line started 0.15s early")
	}

	clk.advance(200 * time.Millisecond) // t = 0.3
	e.Update()
	if got := ch.Clip(); got == nil || got.Name != "hello" {
		t.Fatalf("clip at 0.3s = %v, want hello", got)
	}

	clk.advance(time.Second) // t = 1.3, the line's 1s is up
	e.Update()
	if ch.Clip() != nil {
		t.Fatal("channel still sounding between lines")
	}
	if ch.State() != StatePlaying {
		t.Fatalf("channel released between lines, state = %v", ch.State())
	}

	clk.advance(600 * time.Millisecond) // t = 1.9, past Bye's pre-delay
	e.Update()
	if got := ch.Clip(); got == nil || got.Name != "bye" {
		t.Fatalf("clip at 1.9s = %v, want bye", got)
	}

	clk.advance(600 * time.Millisecond) // t = 2.5, past Bye's end
	e.Update()
	if ch.State() != StateIdle {
		t.Errorf("state after last line = %v, want %v", ch.State(), StateIdle)
	}
	if len(e.tasks) != 0 {
		t.Errorf("%d tasks still queued after completion", len(e.tasks))
	}
}

func TestNarrationSkipsUnplayableItems(t *testing.T) {
	e, _ := newTestEngine(t, testSounds(), testConfig())

	group := &registry.NarrationGroup{
		EntryInfo: registry.EntryInfo{Name: "Patchy"},
		Items: []registry.NarrationItem{
			&registry.NarrationClip{EntryInfo: registry.EntryInfo{Name: "Lost"}, Volume: 1, Pitch: 1},
			&registry.NarrationVariantGroup{
				EntryInfo: registry.EntryInfo{Name: "AllLost"},
				Volume:    1,
				Variants: []*registry.NarrationVariant{
					{EntryInfo: registry.EntryInfo{Name: "A"}, Volume: 1},
				},
			},
			&registry.NarrationClip{
				EntryInfo: registry.EntryInfo{Name: "Tail"},
				Volume:    1, Pitch: 1,
				Clip: shortClip("tail", 0.5),
			},
		},
	}

	// Both unplayable items are skipped in the same tick; Tail has no
	// pre-delay so it sounds immediately.
	ch := e.PlayNarrationEntry(group, PlayOptions{})
	if ch == nil {
		t.Fatal("PlayNarrationEntry returned nil")
	}
	if got := ch.Clip(); got == nil || got.Name != "tail" {
		t.Fatalf("clip = %v, want tail", got)
	}
}

func TestNarrationGroupWithNothingPlayable(t *testing.T) {
	e, clk := newTestEngine(t, testSounds(), testConfig())

	group := &registry.NarrationGroup{
		EntryInfo: registry.EntryInfo{Name: "Silence"},
		Items: []registry.NarrationItem{
			&registry.NarrationClip{EntryInfo: registry.EntryInfo{Name: "Lost"}, Volume: 1, Pitch: 1},
		},
	}
	ch := e.PlayNarrationEntry(group, PlayOptions{})
	if ch == nil {
		t.Fatal("PlayNarrationEntry returned nil")
	}

	// The sequence ends on the spot, the channel is free again
	clk.advance(10 * time.Millisecond)
	e.Update()
	if ch.State() != StateIdle {
		t.Errorf("state = %v, want %v", ch.State(), StateIdle)
	}
}

func TestNarrationVariantRotation(t *testing.T) {
	e, _ := newTestEngine(t, testSounds(), testConfig())

	vg := &registry.NarrationVariantGroup{
		EntryInfo: registry.EntryInfo{Name: "Greet"},
		Volume:    1,
		Variants: []*registry.NarrationVariant{
			{EntryInfo: registry.EntryInfo{Name: "A"}, Volume: 1, Clip: shortClip("greet-a", 0.5)},
			{EntryInfo: registry.EntryInfo{Name: "B"}, Volume: 1, Clip: shortClip("greet-b", 0.5)},
			{EntryInfo: registry.EntryInfo{Name: "C"}, Volume: 1, Clip: shortClip("greet-c", 0.5)},
		},
	}

	seen := make(map[string]bool)
	for i := 0; i < 30; i++ {
		ch := e.PlayNarrationEntry(vg, PlayOptions{})
		if ch == nil {
			t.Fatal("PlayNarrationEntry returned nil")
		}
		if c := ch.Clip(); c != nil {
			seen[c.Name] = true
		}
		e.StopNarration(ch, 0)
	}
	if len(seen) != 3 {
		t.Errorf("30 draws hit %d of 3 variants: %v", len(seen), seen)
	}
}

func TestNarrationVariantVolumeMultiplies(t *testing.T) {
	e, _ := newTestEngine(t, testSounds(), testConfig())

	vg := &registry.NarrationVariantGroup{
		EntryInfo: registry.EntryInfo{Name: "Soft"},
		Volume:    0.5,
		Variants: []*registry.NarrationVariant{
			{EntryInfo: registry.EntryInfo{Name: "Only"}, Volume: 0.5, Clip: shortClip("only", 0.5)},
		},
	}
	ch := e.PlayNarrationEntry(vg, PlayOptions{})
	if got := ch.Volume(); got != 0.25 {
		t.Errorf("volume = %v, want 0.25", got)
	}
}

func TestStopNarrationCancelsSequence(t *testing.T) {
	e, clk := newTestEngine(t, testSounds(), testConfig())

	ch := e.PlayNarration("Opening", PlayOptions{})
	clk.advance(300 * time.Millisecond)
	e.Update()
	if got := ch.Clip(); got == nil || got.Name != "hello" {
		t.Fatalf("clip = %v, want hello", got)
	}

	e.StopNarration(ch, 0)
	if ch.State() != StateIdle {
		t.Fatalf("state after stop = %v, want %v", ch.State(), StateIdle)
	}

	// The orphaned task must not resurrect the sequence
	clk.advance(3 * time.Second)
	e.Update()
	if ch.State() != StateIdle || ch.Clip() != nil {
		t.Error("cancelled narration came back")
	}
	if len(e.tasks) != 0 {
		t.Errorf("%d tasks still queued after cancel", len(e.tasks))
	}
}

func TestNarrationPoolStealing(t *testing.T) {
	e, clk := newTestEngine(t, testSounds(), testConfig())

	a := e.PlayNarration("Opening", PlayOptions{})
	clk.advance(10 * time.Millisecond)
	b := e.PlayNarration("Opening", PlayOptions{})
	clk.advance(10 * time.Millisecond)
	c := e.PlayNarration("Opening", PlayOptions{})

	if a == nil || b == nil || c == nil {
		t.Fatal("PlayNarration returned nil")
	}
	if c != a {
		t.Error("third narration did not reuse the least recently assigned channel")
	}

	e.Update()
	if len(e.tasks) != 2 {
		t.Errorf("%d tasks alive, want 2: the stolen channel's task must die", len(e.tasks))
	}
}

func TestNarrationSingleLine(t *testing.T) {
	e, _ := newTestEngine(t, testSounds(), testConfig())

	// A concrete line resolved on its own plays as a one-item sequence
	entry := e.Registry().Lookup("Hello")
	if entry == nil {
		t.Fatal("Hello not in lookup")
	}
	ch := e.PlayNarrationEntry(entry, PlayOptions{})
	if ch == nil {
		t.Fatal("single line narration returned nil")
	}
	if ch.Clip() != nil {
		t.Error("pre-delay ignored for single line")
	}
}

func TestPlayNarrationRejectsNonNarration(t *testing.T) {
	e, _ := newTestEngine(t, testSounds(), testConfig())

	if ch := e.PlayNarration("Click", PlayOptions{}); ch != nil {
		t.Errorf("effect played as narration: %v", ch)
	}
	empty := &registry.NarrationGroup{EntryInfo: registry.EntryInfo{Name: "Nothing"}}
	if ch := e.PlayNarrationEntry(empty, PlayOptions{}); ch != nil {
		t.Errorf("empty group returned %v, want nil", ch)
	}
}
