package verify

import "fmt"

// TaskOverheadBytes is the fixed per-task bookkeeping cost (control block,
// list links, guard words) counted on top of the stack region.
const TaskOverheadBytes = 32

// TaskSpec describes one task of the configuration under verification.
type TaskSpec struct {
	Name      string
	StackSize int
	Priority  int
}

// TaskSet aggregates the declared tasks and computes the memory footprint
// the configuration will occupy at run time. Task names are stored in the
// read-only section and cost no RAM.
type TaskSet struct {
	tasks []TaskSpec
}

// Add appends a task after validating its stack size and priority.
func (s *TaskSet) Add(t TaskSpec) error {
	if err := CheckStack(t.StackSize); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}
	if err := CheckPriority(t.Priority); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}
	s.tasks = append(s.tasks, t)
	return nil
}

// Len returns the number of tasks in the set.
func (s *TaskSet) Len() int { return len(s.tasks) }

// Tasks returns the validated tasks.
func (s *TaskSet) Tasks() []TaskSpec { return s.tasks }

// TotalStackRAM returns the summed stack sizes in bytes.
func (s *TaskSet) TotalStackRAM() int {
	total := 0
	for _, t := range s.tasks {
		total += t.StackSize
	}
	return total
}

// TotalRAM returns the total RAM footprint: stacks plus the fixed per-task
// bookkeeping overhead.
func (s *TaskSet) TotalRAM() int {
	return s.TotalStackRAM() + len(s.tasks)*TaskOverheadBytes
}

// CheckBudget fails when the configuration needs more RAM than budget. The
// diagnostic names the heaviest task so the report points at what to shrink.
func (s *TaskSet) CheckBudget(budget int) error {
	total := s.TotalRAM()
	if total <= budget {
		return nil
	}
	heaviest := ""
	max := -1
	for _, t := range s.tasks {
		if t.StackSize > max {
			max = t.StackSize
			heaviest = t.Name
		}
	}
	return fmt.Errorf("%w: need %d bytes, budget %d (largest stack: %q, %d bytes)",
		ErrBudgetExceeded, total, budget, heaviest, max)
}
