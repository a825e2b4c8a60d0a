package system

import (
	"context"
	"fmt"
	"testing"
)

// fakeService records lifecycle calls into a shared log.
type fakeService struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Start(context.Context) error {
	*f.log = append(*f.log, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop(context.Context) error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.stopErr
}

func TestManagerLifecycleOrder(t *testing.T) {
	var log []string
	m := NewManager()
	for _, name := range []string{"registry", "swap", "monitor"} {
		if err := m.Register(&fakeService{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{
		"start registry", "start swap", "start monitor",
		"stop monitor", "stop swap", "stop registry",
	}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}
}

func TestManagerStartFailureUnwinds(t *testing.T) {
	var log []string
	m := NewManager()
	m.Register(&fakeService{name: "first", log: &log})
	m.Register(&fakeService{name: "second", startErr: fmt.Errorf("boom"), log: &log})
	m.Register(&fakeService{name: "third", log: &log})

	err := m.Start(context.Background())
	if err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start first", "start second", "stop first"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %s, want %s", i, log[i], want[i])
		}
	}

	// A failed start leaves the manager reusable.
	if err := m.Register(&fakeService{name: "fourth", log: &log}); err != nil {
		t.Fatalf("register after failed start: %v", err)
	}
}

func TestManagerRejectsDuplicatesAndLateRegistration(t *testing.T) {
	var log []string
	m := NewManager()
	if err := m.Register(&fakeService{name: "gateway", log: &log}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(&fakeService{name: "gateway", log: &log}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := m.Register(nil); err == nil {
		t.Fatal("expected nil service error")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop(context.Background())

	if err := m.Register(&fakeService{name: "late", log: &log}); err == nil {
		t.Fatal("expected registration after start to fail")
	}
	if names := m.Names(); len(names) != 1 || names[0] != "gateway" {
		t.Fatalf("names = %v", names)
	}
}
