package selection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rescale/imghub/internal/events"
	"github.com/rescale/imghub/internal/util/ids"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func img(name string) Blob {
	return NewBytesBlob(name, "image/png", pngHeader)
}

func txt(name string) Blob {
	return NewBytesBlob(name, "text/plain", []byte("hello"))
}

func TestAddFiltersNonImages(t *testing.T) {
	b := NewBuffer()
	added, skipped := b.Add(img("a.png"), txt("notes.txt"), img("b.png"))

	if len(added) != 2 || len(skipped) != 1 {
		t.Fatalf("Add() = %d added, %d skipped, want 2 and 1", len(added), len(skipped))
	}
	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() length = %d, want 2", len(snap))
	}
	if snap[0].Blob.Name() != "a.png" || snap[1].Blob.Name() != "b.png" {
		t.Errorf("Snapshot order = %s, %s", snap[0].Blob.Name(), snap[1].Blob.Name())
	}
	for _, e := range snap {
		if e.ID == "" || e.Preview == "" {
			t.Errorf("entry missing id or preview: %+v", e)
		}
	}
}

func TestAddAppendsAfterExisting(t *testing.T) {
	b := NewBuffer(WithIDGenerator(ids.Sequence("sel")))
	b.Add(img("a.png"))
	first := b.Snapshot()[0]
	b.Add(img("b.png"), img("c.png"))

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Len = %d, want 3", len(snap))
	}
	if snap[0] != first {
		t.Errorf("existing entry changed: %+v != %+v", snap[0], first)
	}
	wantIDs := []string{"sel-1", "sel-2", "sel-3"}
	for i, want := range wantIDs {
		if snap[i].ID != want {
			t.Errorf("snap[%d].ID = %s, want %s", i, snap[i].ID, want)
		}
	}
}

func TestRemove(t *testing.T) {
	previews := NewRegistryPreviews()
	b := NewBuffer(WithPreviews(previews))
	added, _ := b.Add(img("a.png"), img("b.png"))

	if !b.Remove(added[0].ID) {
		t.Fatal("Remove returned false for existing id")
	}
	for _, e := range b.Snapshot() {
		if e.ID == added[0].ID {
			t.Error("removed id still present in snapshot")
		}
	}
	if previews.Live() != 1 {
		t.Errorf("live previews = %d, want 1", previews.Live())
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	b := NewBuffer()
	b.Add(img("a.png"))
	before := b.Snapshot()

	if b.Remove("does-not-exist") {
		t.Error("Remove of unknown id returned true")
	}
	after := b.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("snapshot changed: %v -> %v", before, after)
	}
}

func TestClear(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		previews := NewRegistryPreviews()
		b := NewBuffer(WithPreviews(previews))
		for i := 0; i < n; i++ {
			b.Add(img("x.png"))
		}
		if got := b.Clear(); got != n {
			t.Errorf("Clear() = %d, want %d", got, n)
		}
		if b.Len() != 0 || len(b.Snapshot()) != 0 {
			t.Errorf("buffer not empty after Clear with %d entries", n)
		}
		if previews.Live() != 0 {
			t.Errorf("leaked %d previews after Clear", previews.Live())
		}
	}
}

func TestDiscard(t *testing.T) {
	previews := NewRegistryPreviews()
	b := NewBuffer(WithPreviews(previews), WithIDGenerator(ids.Sequence("e")))
	added, _ := b.Add(img("a.png"), img("b.png"), img("c.png"), img("d.png"))

	if got := b.Discard(added[0].ID, added[2].ID, "unknown"); got != 2 {
		t.Errorf("Discard() = %d, want 2", got)
	}
	snap := b.Snapshot()
	if len(snap) != 2 || snap[0].ID != added[1].ID || snap[1].ID != added[3].ID {
		t.Errorf("remaining entries = %v, want b and d in order", snap)
	}
	if previews.Live() != 2 {
		t.Errorf("live previews = %d, want 2", previews.Live())
	}
	if got := b.Discard("unknown"); got != 0 {
		t.Errorf("Discard(unknown) = %d, want 0", got)
	}
}

func TestNoLeakedPreviews(t *testing.T) {
	previews := NewRegistryPreviews()
	b := NewBuffer(WithPreviews(previews))

	added, _ := b.Add(img("a.png"), img("b.png"), img("c.png"), txt("d.txt"))
	if previews.Live() != 3 {
		t.Fatalf("live previews = %d, want 3 (non-images get none)", previews.Live())
	}
	b.Remove(added[1].ID)
	b.Remove(added[1].ID)
	b.Clear()
	if previews.Live() != 0 {
		t.Errorf("leaked %d previews", previews.Live())
	}
}

func TestBlobsOrder(t *testing.T) {
	b := NewBuffer()
	b.Add(img("1.png"), img("2.png"), img("3.png"))
	blobs := b.Blobs()
	for i, want := range []string{"1.png", "2.png", "3.png"} {
		if blobs[i].Name() != want {
			t.Errorf("Blobs()[%d] = %s, want %s", i, blobs[i].Name(), want)
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	b := NewBuffer()
	b.Add(img("a.png"))
	snap := b.Snapshot()
	snap[0].ID = "mutated"
	if b.Snapshot()[0].ID == "mutated" {
		t.Error("Snapshot exposed internal slice")
	}
}

func TestSelectionEvents(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventSelectionChanged)

	b := NewBuffer(WithEventBus(bus))
	added, _ := b.Add(img("a.png"))
	b.Remove(added[0].ID)
	b.Clear()

	for _, want := range []string{"add", "remove", "clear"} {
		select {
		case ev := <-ch:
			sc, ok := ev.(*events.SelectionChangedEvent)
			if !ok {
				t.Fatalf("unexpected event type %T", ev)
			}
			if sc.Action != want {
				t.Errorf("Action = %s, want %s", sc.Action, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %s event", want)
		}
	}
}

func TestDirPreviews(t *testing.T) {
	previews, err := NewDirPreviews(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer previews.Close()

	b := NewBuffer(WithPreviews(previews))
	added, _ := b.Add(img("a.png"), img("b.png"))
	if previews.Live() != 2 {
		t.Fatalf("preview files = %d, want 2", previews.Live())
	}
	if filepath.Ext(added[0].Preview) != ".png" {
		t.Errorf("preview %s should keep the .png extension", added[0].Preview)
	}

	b.Remove(added[0].ID)
	if previews.Live() != 1 {
		t.Errorf("preview files after Remove = %d, want 1", previews.Live())
	}
	b.Clear()
	if previews.Live() != 0 {
		t.Errorf("preview files after Clear = %d, want 0", previews.Live())
	}

	if err := previews.Release("file:///etc/passwd"); err == nil {
		t.Error("Release outside the preview directory should fail")
	}
}

func TestFileBlob(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "photo.png")
	os.WriteFile(png, pngHeader, 0644)
	noext := filepath.Join(dir, "capture")
	os.WriteFile(noext, pngHeader, 0644)
	text := filepath.Join(dir, "readme.txt")
	os.WriteFile(text, []byte("just text"), 0644)

	tests := []struct {
		path    string
		want    string
		isImage bool
	}{
		{png, "image/png", true},
		{noext, "image/png", true},
		{text, "text/plain", false},
	}

	for _, tt := range tests {
		blob, err := NewFileBlob(tt.path)
		if err != nil {
			t.Fatalf("NewFileBlob(%s) failed: %v", tt.path, err)
		}
		if blob.MediaType() != tt.want {
			t.Errorf("MediaType(%s) = %s, want %s", filepath.Base(tt.path), blob.MediaType(), tt.want)
		}
		if IsImage(blob.MediaType()) != tt.isImage {
			t.Errorf("IsImage(%s) = %v", blob.MediaType(), !tt.isImage)
		}
		if blob.Name() != filepath.Base(tt.path) {
			t.Errorf("Name() = %s", blob.Name())
		}
	}

	if _, err := NewFileBlob(dir); err == nil {
		t.Error("NewFileBlob on a directory should fail")
	}
	if _, err := NewFileBlob(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("NewFileBlob on a missing file should fail")
	}
}
