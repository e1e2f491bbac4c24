package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventProgress)

	bus.PublishProgress("upload", 50, 100, "halfway")

	select {
	case received := <-ch:
		progress, ok := received.(*ProgressEvent)
		if !ok {
			t.Fatal("Expected ProgressEvent")
		}
		if progress.Stage != "upload" {
			t.Errorf("Expected stage 'upload', got '%s'", progress.Stage)
		}
		if progress.Progress != 0.5 {
			t.Errorf("Expected progress 0.5, got %f", progress.Progress)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventSelectionChanged)
	ch2 := bus.Subscribe(EventSelectionChanged)

	bus.PublishSelectionChanged("add", []string{"a", "b"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			sel := ev.(*SelectionChangedEvent)
			if len(sel.IDs) != 2 || sel.Action != "add" {
				t.Errorf("subscriber %d got %+v", i, sel)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d did not receive the event", i)
		}
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	submitCh := bus.Subscribe(EventSubmitCompleted)
	historyCh := bus.Subscribe(EventHistoryChanged)

	bus.PublishSubmit(EventSubmitCompleted, 2, []string{"e1"}, "", time.Second)

	select {
	case ev := <-submitCh:
		submit := ev.(*SubmitEvent)
		if submit.FileCount != 2 {
			t.Errorf("FileCount = %d, want 2", submit.FileCount)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Submit subscriber didn't receive event")
	}

	select {
	case <-historyCh:
		t.Error("History subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	allCh := bus.SubscribeAll()

	bus.PublishHistoryChanged([]string{"x"}, false, 1)
	bus.PublishLog(InfoLevel, "hello", "test", nil)

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
			count++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if count != 2 {
		t.Errorf("Expected to receive 2 events, got %d", count)
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2)
	defer bus.Close()

	ch := bus.Subscribe(EventProgress)

	for i := 0; i < 10; i++ {
		bus.PublishProgress("upload", int64(i), 10, "")
	}

	if bus.Dropped() != 8 {
		t.Errorf("dropped = %d, want 8", bus.Dropped())
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count != 2 {
		t.Errorf("received %d events, want 2", count)
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventProgress)

	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.PublishProgress("upload", 1, 1, "")

	// Subscribing after close returns a closed channel
	late := bus.Subscribe(EventLog)
	if _, ok := <-late; ok {
		t.Error("late subscription should be closed")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventHistoryChanged)
	bus.Unsubscribe(EventHistoryChanged, ch)

	bus.PublishHistoryChanged(nil, true, 0)

	select {
	case <-ch:
		t.Error("unsubscribed channel received an event")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		DebugLevel:   "DEBUG",
		InfoLevel:    "INFO",
		WarnLevel:    "WARN",
		ErrorLevel:   "ERROR",
		LogLevel(42): "UNKNOWN",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", level, got, want)
		}
	}
}
