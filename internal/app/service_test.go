package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	name     string
	startErr error
	block    bool

	mu    sync.Mutex
	trace *[]string
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return nil
	}
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.trace = append(*f.trace, "stop:"+f.name)
	return nil
}

func TestRunnerStopsInReverseOrderWhenServiceExits(t *testing.T) {
	var trace []string
	boom := errors.New("listen failed")
	httpSvc := &fakeService{name: "http", startErr: boom, trace: &trace}
	workerSvc := &fakeService{name: "worker", block: true, trace: &trace}

	runner := NewRunner(httpSvc, workerSvc)
	runner.OnShutdown(func() { trace = append(trace, "close:first") })
	runner.OnShutdown(func() { trace = append(trace, "close:second") })

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	want := []string{"stop:worker", "stop:http", "close:second", "close:first"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestRunnerReturnsNilOnCancel(t *testing.T) {
	var trace []string
	runner := NewRunner(&fakeService{name: "worker", block: true, trace: &trace})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("cancelled run should return nil, got %v", err)
	}
	if len(trace) != 1 || trace[0] != "stop:worker" {
		t.Fatalf("worker should be stopped, trace=%v", trace)
	}
}

func TestBuildRunnerRejectsUnknownMode(t *testing.T) {
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
	if ValidMode("batch") {
		t.Fatalf("batch is not a supported mode")
	}
}
