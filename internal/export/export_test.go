package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/http"
)

func TestParseDestination(t *testing.T) {
	tests := []struct {
		raw  string
		want Destination
	}{
		{"out/history.json", Destination{Scheme: SchemeFile, Key: filepath.Clean("out/history.json")}},
		{"file:///tmp/h.json", Destination{Scheme: SchemeFile, Key: "/tmp/h.json"}},
		{"s3://bucket/exports/h.json", Destination{Scheme: SchemeS3, Bucket: "bucket", Key: "exports/h.json"}},
		{"S3://bucket/h.json", Destination{Scheme: SchemeS3, Bucket: "bucket", Key: "h.json"}},
		{"azblob://container/a/b.json", Destination{Scheme: SchemeAzBlob, Bucket: "container", Key: "a/b.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDestination(tt.raw)
			if err != nil {
				t.Fatalf("ParseDestination(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseDestination(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDestinationErrors(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr error
	}{
		{"", ErrEmptyDestination},
		{"   ", ErrEmptyDestination},
		{"s3://bucket", ErrMissingObject},
		{"s3://bucket/", ErrMissingObject},
		{"s3://bucket/dir/", ErrMissingObject},
		{"azblob:///blob.json", ErrMissingObject},
		{"gs://bucket/h.json", ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if _, err := ParseDestination(tt.raw); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseDestination(%q) = %v, want %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestDestinationString(t *testing.T) {
	d := Destination{Scheme: SchemeS3, Bucket: "b", Key: "k.json"}
	if d.String() != "s3://b/k.json" {
		t.Errorf("String() = %s", d.String())
	}
	f := Destination{Scheme: SchemeFile, Key: "/tmp/x.json"}
	if f.String() != "/tmp/x.json" {
		t.Errorf("String() = %s", f.String())
	}
}

func sampleEntries() []history.Entry {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []history.Entry{
		{ID: "b", Timestamp: ts, Payload: history.Record{"final_scores": []any{0.9}}},
		{ID: "a", Timestamp: ts.Add(-time.Minute), Payload: history.Record{"error": "boom", "error_type": "network"}},
	}
}

func TestMarshalEmpty(t *testing.T) {
	data, err := Marshal(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Errorf("Marshal(nil) = %q, want []", data)
	}
}

func TestFileSinkWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	if err := Write(context.Background(), NewFileSink(path), sampleEntries(), http.Config{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []history.Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("unexpected export order: %+v", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain")
	}
}

func TestFileSinkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "h.json")
	if err := NewFileSink(path).Put(ctx, []byte("[]")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cancelled put should not write")
	}
}

type flakySink struct {
	failures int
	calls    int
	last     []byte
}

func (f *flakySink) Put(_ context.Context, data []byte) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection reset by peer")
	}
	f.last = data
	return nil
}

func TestWriteRetriesTransientFailures(t *testing.T) {
	sink := &flakySink{failures: 2}
	cfg := http.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	if err := Write(context.Background(), sink, sampleEntries(), cfg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if sink.calls != 3 {
		t.Errorf("calls = %d, want 3", sink.calls)
	}
	if len(sink.last) == 0 {
		t.Error("sink never received data")
	}
}

func TestWriteGivesUp(t *testing.T) {
	sink := &flakySink{failures: 10}
	cfg := http.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	if err := Write(context.Background(), sink, sampleEntries(), cfg); err == nil {
		t.Fatal("expected error")
	}
	if sink.calls != 2 {
		t.Errorf("calls = %d, want 2", sink.calls)
	}
}

func TestOpenFile(t *testing.T) {
	sink, err := Open(context.Background(), Destination{Scheme: SchemeFile, Key: "x.json"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*FileSink); !ok {
		t.Errorf("Open(file) = %T, want *FileSink", sink)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open(context.Background(), Destination{Scheme: "ftp"}, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Open(ftp) = %v, want ErrUnsupported", err)
	}
}

func TestAzBlobSinkRequiresConnectionString(t *testing.T) {
	if _, err := NewAzBlobSink(nil, "", "c", "b.json"); !errors.Is(err, ErrMissingAzureCredentials) {
		t.Errorf("NewAzBlobSink() = %v, want ErrMissingAzureCredentials", err)
	}
}
