//go:build !tinygo

package kernel

// contextSwitch transfers the execution token from cur to next.
//
// On the host port every task is a goroutine permanently parked on its gate
// channel; handing over the token is a send to next's gate followed by a
// receive on cur's own. This is the only place execution moves between
// tasks. A bare-metal port replaces this file with a register save/restore
// into the task stack regions.
func (k *Kernel) contextSwitch(cur, next *Task) {
	next.gate <- struct{}{}
	<-cur.gate
}
