package verify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const goodManifest = `
ram_budget: 8192

tasks:
  - name: control
    stack_size: 1024
    priority: 5
  - name: telemetry
    stack_size: 512
    priority: 3

queues:
  - name: telemetry_q
    elem_type: Sample
    elem_size: 24
    elem_pointers: false
    slots: 16

lock_sites:
  - where: control_update
    acquires: [1, 4]

call_sites:
  - where: tick_isr
    op: tick
    interrupt: true
  - where: control_loop
    op: receive
    interrupt: false
`

const badManifest = `
ram_budget: 1024

tasks:
  - name: control
    stack_size: 1024
    priority: 9
  - name: telemetry
    stack_size: 300
    priority: 3

queues:
  - name: blob_q
    elem_type: Blob
    elem_size: 512
    elem_pointers: true
    slots: 4

lock_sites:
  - where: control_update
    acquires: [4, 1]

call_sites:
  - where: uart_isr
    op: send
    interrupt: true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ember.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestManifestGood(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, goodManifest))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v, want nil", err)
	}
	if errs := m.Check(); len(errs) != 0 {
		t.Fatalf("Check() = %v, want no violations", errs)
	}
	if got := m.TaskSet().TotalRAM(); got != 1600 {
		t.Fatalf("TotalRAM() = %d, want 1600", got)
	}
}

func TestManifestBad(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, badManifest))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v, want nil", err)
	}
	errs := m.Check()

	wants := []error{
		ErrPriorityRange,
		ErrStackAlign,
		ErrElemTooLarge,
		ErrElemHasPointers,
		ErrLockOrder,
		ErrNotInterruptSafe,
	}
	for _, want := range wants {
		found := false
		for _, err := range errs {
			if errors.Is(err, want) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Check() = %v, missing %v", errs, want)
		}
	}
}

func TestManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("LoadManifest(missing) = nil error, want error")
	}
}
