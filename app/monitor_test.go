package app

import (
	"bytes"
	"strings"
	"testing"

	"ember/hal"
	"ember/kernel"
)

type fakeSerial struct {
	out bytes.Buffer
}

func (f *fakeSerial) Read(p []byte) (int, error)  { return 0, nil }
func (f *fakeSerial) Write(p []byte) (int, error) { return f.out.Write(p) }

type fakeLogger struct {
	lines []string
}

func (l *fakeLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *fakeLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

type fakeLED struct{}

func (fakeLED) High() {}
func (fakeLED) Low()  {}

type fakeHAL struct {
	logger fakeLogger
	serial fakeSerial
}

func (f *fakeHAL) Logger() hal.Logger   { return &f.logger }
func (f *fakeHAL) LED() hal.LED         { return fakeLED{} }
func (f *fakeHAL) Serial() hal.Serial   { return &f.serial }
func (f *fakeHAL) Display() hal.Display { return nil }
func (f *fakeHAL) Time() hal.Time       { return nil }

func newTestSystem(t *testing.T) (*system, *fakeHAL) {
	t.Helper()
	fh := &fakeHAL{}
	k := kernel.New()
	return &system{
		k:     k,
		h:     fh,
		stats: &stats{mu: k.NewMutex(lockStats)},
		tasks: make(map[string]*kernel.Task),
	}, fh
}

func TestMonitorDispatchHelp(t *testing.T) {
	s, fh := newTestSystem(t)
	s.dispatch("help")
	out := fh.serial.out.String()
	for _, cmd := range commands {
		if !strings.Contains(out, cmd.Name) {
			t.Errorf("help output missing %q:\n%s", cmd.Name, out)
		}
	}
}

func TestMonitorDispatchUnknown(t *testing.T) {
	s, fh := newTestSystem(t)
	s.dispatch("frobnicate now")
	if got := fh.serial.out.String(); !strings.Contains(got, "unknown command: frobnicate") {
		t.Errorf("dispatch output = %q, want unknown command report", got)
	}
}

func TestMonitorDispatchQuoting(t *testing.T) {
	s, fh := newTestSystem(t)
	s.dispatch(`suspend "blink"`)
	if got := fh.serial.out.String(); !strings.Contains(got, "no such task: blink") {
		t.Errorf("dispatch output = %q, want unquoted task name lookup", got)
	}
}

func TestMonitorPsListsTasks(t *testing.T) {
	s, fh := newTestSystem(t)
	if err := s.addTask("worker", 1024, kernel.PrioNormal, func() { select {} }); err != nil {
		t.Fatalf("addTask() = %v, want nil", err)
	}
	s.dispatch("ps")
	out := fh.serial.out.String()
	if !strings.Contains(out, "worker") {
		t.Errorf("ps output missing task:\n%s", out)
	}
	if !strings.Contains(out, "idle") {
		t.Errorf("ps output missing idle task:\n%s", out)
	}
}

func TestMonitorTicksBeforeStart(t *testing.T) {
	s, fh := newTestSystem(t)
	s.dispatch("ticks")
	if got := strings.TrimSpace(fh.serial.out.String()); got != "0" {
		t.Errorf("ticks output = %q, want 0", got)
	}
}
