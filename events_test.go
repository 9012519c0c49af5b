package tofu_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/tofu"
	tofutest "github.com/zoobzio/tofu/testing"
)

func TestMain(m *testing.M) {
	capitan.Configure(capitan.WithSyncMode())
	os.Exit(m.Run())
}

func captureQueryEvents(t *testing.T) *tofutest.EventCapture {
	t.Helper()
	capture := tofutest.NewEventCapture()
	for _, signal := range []capitan.Signal{tofu.QueryCreated, tofu.ScopeOpened, tofu.QueryExecuted, tofu.QueryFailed} {
		listener := capitan.Hook(signal, capture.Handler())
		t.Cleanup(listener.Close)
	}
	return capture
}

func TestQueryEventsInOrder(t *testing.T) {
	ctx := context.Background()
	capture := captureQueryEvents(t)
	root := tofutest.NewFakeCriteria(tofutest.WithRows([]A{{ID: 9}}))

	q := tofu.GetAll[A](ctx, tofutest.SessionFor(root))
	_, err := tofu.HasChild(q.Nav(), AB).
		Where(BGhi.Eq(true)).
		EndChild().
		Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := capture.ByQuery(q.ID().String())
	want := []capitan.Signal{tofu.QueryCreated, tofu.ScopeOpened, tofu.QueryExecuted}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, signal := range want {
		if events[i].Signal != signal {
			t.Errorf("event %d: expected %s, got %s", i, signal.Name(), events[i].Signal.Name())
		}
	}

	if events[0].Entity != "A" || events[0].Shape != "list" {
		t.Errorf("unexpected created event: %+v", events[0])
	}
	if events[1].Entity != "B" || events[1].Association != "B" {
		t.Errorf("unexpected scope event: %+v", events[1])
	}
	if events[2].Rows != 1 || events[2].Shape != "list" {
		t.Errorf("unexpected executed event: %+v", events[2])
	}
}

func TestQueryFailedEvent(t *testing.T) {
	ctx := context.Background()
	capture := captureQueryEvents(t)
	boom := errors.New("boom")
	root := tofutest.NewFakeCriteria(tofutest.FailList(boom))

	q := tofu.GetOne[A](ctx, tofutest.SessionFor(root))
	if _, err := q.Execute(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	events := capture.ByQuery(q.ID().String())
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[1].Signal != tofu.QueryFailed {
		t.Errorf("expected %s, got %s", tofu.QueryFailed.Name(), events[1].Signal.Name())
	}
	if events[1].Error != "boom" || events[1].Shape != "single" {
		t.Errorf("unexpected failed event: %+v", events[1])
	}
	if len(capture.BySignal(tofu.QueryExecuted)) != 0 {
		t.Error("a failed query must not report execution")
	}
}

type traceKey struct{}

func TestScopeOpenedUsesQueryContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), traceKey{}, "trace-7")
	root := tofutest.NewFakeCriteria()

	var got any
	listener := capitan.Hook(tofu.ScopeOpened, func(ctx context.Context, _ *capitan.Event) {
		got = ctx.Value(traceKey{})
	})
	t.Cleanup(listener.Close)

	tofu.HasChildren(tofu.GetAll[A](ctx, tofutest.SessionFor(root)).Nav(), AItems)

	if got != "trace-7" {
		t.Errorf("expected the query context on the scope event, got %v", got)
	}
}
