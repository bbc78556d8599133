package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func collect(t *testing.T, ch <-chan ProgressEvent, n int) []ProgressEvent {
	t.Helper()
	var out []ProgressEvent
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestReporterPublishesToJobSubscribers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	mine := hub.Subscribe("job-1")
	other := hub.Subscribe("job-2")

	report := hub.Reporter("job-1", "BBCA")
	report(0.1, "Memulai analisa")
	report(1, "Selesai")

	events := collect(t, mine, 2)
	if events[0].Progress != 0.1 || events[0].Ticker != "BBCA" || events[0].Done {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if !events[1].Done {
		t.Error("progress 1 should mark the job done")
	}

	select {
	case ev := <-other:
		t.Errorf("other job received %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailIsTerminal(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	ch := hub.Subscribe("job")
	hub.Fail("job", "TLKM", errors.New("no price data"))

	ev := collect(t, ch, 1)[0]
	if !ev.Done || ev.Error != "no price data" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHubWithConfig(HubConfig{BufferSize: 64, SubscriberBufferSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)
	defer hub.Stop()

	hub.Subscribe("job")
	for i := 0; i < 5; i++ {
		hub.Publish(ProgressEvent{JobID: "job", Progress: float64(i) / 10})
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Metrics().Received < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m := hub.Metrics()
	if m.Delivered != 1 || m.Dropped != 4 {
		t.Errorf("delivered=%d dropped=%d, want 1 and 4", m.Delivered, m.Dropped)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("job")
	hub.Unsubscribe("job", ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	if hub.SubscriberCount("job") != 0 {
		t.Error("subscriber not removed")
	}
}

func TestProperty_FastSubscribersReceiveEveryEvent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("all subscribers see every event in order", prop.ForAll(
		func(subscribers, events int) bool {
			hub := NewHubWithConfig(HubConfig{BufferSize: 64, SubscriberBufferSize: 64})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			hub.Start(ctx)
			defer hub.Stop()

			chans := make([]<-chan ProgressEvent, subscribers)
			for i := range chans {
				chans[i] = hub.Subscribe("job")
			}
			report := hub.Reporter("job", "ASII")
			for i := 1; i <= events; i++ {
				report(float64(i)/float64(events+1), "step")
			}

			for _, ch := range chans {
				last := 0.0
				for i := 0; i < events; i++ {
					select {
					case ev := <-ch:
						if ev.Progress <= last {
							return false
						}
						last = ev.Progress
					case <-time.After(time.Second):
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
