package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"coconut-risk/shared/config"
)

type summary string

func (s summary) GetSummary() string { return string(s) }

type fakeAgent struct {
	runErr     error
	partialErr error
	runs       int
}

func (f *fakeAgent) Name() string      { return "Fake Agent" }
func (f *fakeAgent) Initialize() error { return nil }

func (f *fakeAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	f.runs++
	if f.partialErr != nil {
		events.OnPartialFailure(f.partialErr, time.Millisecond)
	}
	if f.runErr != nil {
		return f.runErr
	}
	events.OnSuccess(summary("all good"), time.Millisecond)
	return nil
}

func TestRunOnceSuccess(t *testing.T) {
	agent := &fakeAgent{partialErr: errors.New("trees defaulted")}
	s := New(&config.Config{}, agent)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if agent.runs != 1 {
		t.Errorf("Expected 1 run, got %d", agent.runs)
	}
	if !s.Monitor().IsHealthy() {
		t.Error("Expected monitor to be healthy after success")
	}
	if got := s.Monitor().PartialFailures(); got != 1 {
		t.Errorf("Expected 1 partial failure, got %d", got)
	}
}

func TestRunOnceFailure(t *testing.T) {
	agent := &fakeAgent{runErr: errors.New("kaboom")}
	s := New(&config.Config{}, agent)

	err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("Expected error from failing agent")
	}
	if !errors.Is(err, agent.runErr) {
		t.Errorf("Expected wrapped agent error, got %v", err)
	}
	if s.Monitor().IsHealthy() {
		t.Error("Expected monitor to be unhealthy after critical failure")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := &config.Config{Schedule: "not a cron spec"}
	cfg.Monitoring.HealthPort = 0
	s := New(cfg, &fakeAgent{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.Start(ctx); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

type blockingAgent struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingAgent) Name() string      { return "Blocking Agent" }
func (b *blockingAgent) Initialize() error { return nil }

func (b *blockingAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	b.runs.Add(1)
	b.started <- struct{}{}
	<-b.release
	events.OnSuccess(summary("done"), time.Millisecond)
	return nil
}

func TestStartSerializesInitialRunAndTicks(t *testing.T) {
	agent := &blockingAgent{started: make(chan struct{}, 10), release: make(chan struct{})}
	cfg := &config.Config{Schedule: "* * * * * *"} // every second
	s := New(cfg, agent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-agent.started:
	case <-time.After(5 * time.Second):
		t.Fatal("Initial run never started")
	}

	// Ticks fire while the initial run is still in flight
	time.Sleep(2500 * time.Millisecond)
	if n := agent.runs.Load(); n != 1 {
		t.Errorf("Expected ticks to be skipped during the initial run, got %d runs", n)
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Start returned while the initial run was still in flight")
	case <-time.After(200 * time.Millisecond):
	}

	close(agent.release)
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after the run finished")
	}
}
