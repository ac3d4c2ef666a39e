package kernel

// tickReached reports whether deadline has arrived at tick now, using
// unsigned difference so comparisons survive counter wraparound.
func tickReached(now, deadline uint64) bool {
	return now-deadline < 1<<63
}

// timerList orders tasks by wakeTick (earliest first), linked through
// Task.tnext. It serves both Delay and blocking-operation timeouts.
type timerList struct {
	head *Task
}

func (l *timerList) add(t *Task, wake uint64) {
	t.wakeTick = wake
	t.onTimer = true
	var prev *Task
	for cur := l.head; cur != nil && tickReached(t.wakeTick, cur.wakeTick); cur = cur.tnext {
		prev = cur
	}
	if prev == nil {
		t.tnext = l.head
		l.head = t
	} else {
		t.tnext = prev.tnext
		prev.tnext = t
	}
}

func (l *timerList) remove(t *Task) {
	if !t.onTimer {
		return
	}
	var prev *Task
	for cur := l.head; cur != nil; cur = cur.tnext {
		if cur != t {
			prev = cur
			continue
		}
		if prev == nil {
			l.head = cur.tnext
		} else {
			prev.tnext = cur.tnext
		}
		break
	}
	t.tnext = nil
	t.onTimer = false
}

// expire pops every task whose wake tick has arrived at now.
func (l *timerList) expire(now uint64) *Task {
	var expired, tail *Task
	for l.head != nil && tickReached(now, l.head.wakeTick) {
		t := l.head
		l.head = t.tnext
		t.tnext = nil
		t.onTimer = false
		if tail == nil {
			expired = t
		} else {
			tail.tnext = t
		}
		tail = t
	}
	return expired
}
