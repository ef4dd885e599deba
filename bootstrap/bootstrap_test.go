package bootstrap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/kbukum/pmidfetch/component"
	"github.com/kbukum/pmidfetch/config"
	"github.com/kbukum/pmidfetch/logger"
)

type testConfig struct {
	config.ServiceConfig
}

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) String() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return strings.Join(j.events, ",")
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.HealthStatus
	log      *journal
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	m.log.add("start:" + m.name)
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	m.log.add("stop:" + m.name)
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) component.Health {
	st := m.health
	if st == "" {
		st = component.StatusHealthy
	}
	return component.Health{Name: m.name, Status: st}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "test-svc", Version: "1.0.0"}}
	opts = append([]Option{WithLogger(logger.Nop()), WithSignals()}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("Name, Version = %q, %q", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("defaults not applied: environment = %q", app.Cfg.Environment)
	}
	if app.Components == nil || app.Logger == nil {
		t.Error("expected registry and logger")
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("gracefulTimeout = %v", app.gracefulTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Environment: "moon"}}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(3*time.Second))
	if app.gracefulTimeout != 3*time.Second {
		t.Errorf("gracefulTimeout = %v", app.gracefulTimeout)
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	_ = app.RegisterComponent(&mockComponent{name: "a", log: j})
	_ = app.RegisterComponent(&mockComponent{name: "b", log: j})
	app.OnStart(func(context.Context) error { j.add("onStart"); return nil })
	app.OnStop(func(context.Context) error { j.add("onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		j.add("task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	want := "start:a,start:b,onStart,task,onStop,stop:b,stop:a"
	if got := j.String(); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
}

func TestRunTaskErrorWins(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	stopErr := errors.New("stop failed")
	_ = app.RegisterComponent(&mockComponent{name: "a", stopErr: stopErr, log: j})

	taskErr := errors.New("task failed")
	err := app.RunTask(context.Background(), func(context.Context) error { return taskErr })
	if !errors.Is(err, taskErr) {
		t.Errorf("err = %v, want task error", err)
	}
}

func TestRunTaskStopError(t *testing.T) {
	app := newTestApp(t)
	stopErr := errors.New("stop failed")
	_ = app.RegisterComponent(&mockComponent{name: "a", stopErr: stopErr, log: &journal{}})

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if !errors.Is(err, stopErr) {
		t.Errorf("err = %v, want stop error", err)
	}
}

func TestRunTaskStartErrorSkipsTask(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	_ = app.RegisterComponent(&mockComponent{name: "a", log: j})
	_ = app.RegisterComponent(&mockComponent{name: "b", startErr: errors.New("bind"), log: j})

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil {
		t.Fatal("expected start error")
	}
	if ran {
		t.Error("task ran after failed startup")
	}
	if got := j.String(); got != "start:a,start:b,stop:a" {
		t.Errorf("events = %s", got)
	}
}

func TestRunTaskStartHookError(t *testing.T) {
	app := newTestApp(t)
	app.OnStart(func(context.Context) error { return errors.New("hook") })
	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "onStart hook failed") {
		t.Errorf("err = %v", err)
	}
}

func TestRunTaskStopHookError(t *testing.T) {
	app := newTestApp(t)
	app.OnStop(func(context.Context) error { return errors.New("drain") })
	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "drain") {
		t.Errorf("err = %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.RunTask(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunTaskSignalCancels(t *testing.T) {
	app := newTestApp(t, WithSignals(syscall.SIGUSR1))

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("signal did not cancel the task")
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		name     string
		statuses []component.HealthStatus
		wantErr  bool
	}{
		{"empty", nil, false},
		{"healthy", []component.HealthStatus{component.StatusHealthy}, false},
		{"degraded", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, true},
		{"unhealthy", []component.HealthStatus{component.StatusUnhealthy}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			for i, st := range tt.statuses {
				_ = app.RegisterComponent(&mockComponent{name: string(rune('a' + i)), health: st, log: &journal{}})
			}
			if err := app.ReadyCheck(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("ReadyCheck() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "a", log: &journal{}}); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "a", log: &journal{}}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestShutdown(t *testing.T) {
	app := newTestApp(t)
	j := &journal{}
	_ = app.RegisterComponent(&mockComponent{name: "a", log: j})
	if err := app.Components.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := j.String(); got != "start:a,stop:a" {
		t.Errorf("events = %s", got)
	}
}
