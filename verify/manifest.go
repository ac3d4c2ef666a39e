package verify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"ember/kernel"
)

// Manifest is the on-disk description of a kernel configuration, consumed
// by cmd/emberck as part of the build.
type Manifest struct {
	// RAMBudget is the total RAM available to stacks and task bookkeeping.
	RAMBudget int `yaml:"ram_budget"`

	Tasks []ManifestTask `yaml:"tasks"`

	Queues []ManifestQueue `yaml:"queues"`

	// LockSites lists every call site that acquires mutexes, with the
	// resource IDs in acquisition order.
	LockSites []ManifestLockSite `yaml:"lock_sites"`

	// CallSites lists kernel operation uses whose context needs checking.
	CallSites []ManifestCallSite `yaml:"call_sites"`
}

type ManifestTask struct {
	Name      string `yaml:"name"`
	StackSize int    `yaml:"stack_size"`
	Priority  int    `yaml:"priority"`
}

type ManifestQueue struct {
	Name     string `yaml:"name"`
	ElemType string `yaml:"elem_type"`
	// ElemSize and ElemPointers are declared by the generator that emits
	// the manifest; a YAML file cannot reflect over Go types.
	ElemSize     int  `yaml:"elem_size"`
	ElemPointers bool `yaml:"elem_pointers"`
	Slots        int  `yaml:"slots"`
}

type ManifestLockSite struct {
	Where    string `yaml:"where"`
	Acquires []int  `yaml:"acquires"`
}

type ManifestCallSite struct {
	Where     string `yaml:"where"`
	Op        string `yaml:"op"`
	Interrupt bool   `yaml:"interrupt"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %q: %w", path, err)
	}
	return &m, nil
}

// Check runs every verification the manifest supports and returns all
// violations, not just the first: a build report should show everything
// that needs fixing.
func (m *Manifest) Check() []error {
	var errs []error

	var set TaskSet
	for _, t := range m.Tasks {
		if err := set.Add(TaskSpec{Name: t.Name, StackSize: t.StackSize, Priority: t.Priority}); err != nil {
			errs = append(errs, err)
		}
	}
	if m.RAMBudget > 0 {
		if err := set.CheckBudget(m.RAMBudget); err != nil {
			errs = append(errs, err)
		}
	}

	for _, q := range m.Queues {
		if q.ElemSize > kernel.MaxElemBytes {
			errs = append(errs, fmt.Errorf("queue %q: %w: %s is %d bytes (limit %d)",
				q.Name, ErrElemTooLarge, q.ElemType, q.ElemSize, kernel.MaxElemBytes))
		}
		if q.ElemPointers {
			errs = append(errs, fmt.Errorf("queue %q: %w: %s",
				q.Name, ErrElemHasPointers, q.ElemType))
		}
	}

	var sites []LockSite
	for _, s := range m.LockSites {
		sites = append(sites, LockSite{Where: s.Where, Acquires: s.Acquires})
	}
	if err := CheckLockOrder(sites); err != nil {
		errs = append(errs, err)
	}

	for _, c := range m.CallSites {
		if err := (CallSite{Where: c.Where, Op: c.Op, Interrupt: c.Interrupt}).CheckInterruptSafe(); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// TaskSet builds the validated task set for reporting. Invalid tasks are
// skipped; Check reports them.
func (m *Manifest) TaskSet() *TaskSet {
	var set TaskSet
	for _, t := range m.Tasks {
		_ = set.Add(TaskSpec{Name: t.Name, StackSize: t.StackSize, Priority: t.Priority})
	}
	return &set
}
