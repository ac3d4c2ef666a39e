package app

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"

	"ember/internal/buildinfo"
	"ember/kernel"
)

type command struct {
	Name  string
	Usage string
	Desc  string
	Run   func(s *system, args []string) string
}

var commands []command

func init() {
	commands = []command{
		{Name: "help", Usage: "help", Desc: "List commands.", Run: cmdHelp},
		{Name: "ps", Usage: "ps", Desc: "Show task states and stack headroom.", Run: cmdPs},
		{Name: "ticks", Usage: "ticks", Desc: "Show the kernel tick counter.", Run: cmdTicks},
		{Name: "free", Usage: "free", Desc: "Show heap usage.", Run: cmdFree},
		{Name: "suspend", Usage: "suspend <task>", Desc: "Suspend a task.", Run: cmdSuspend},
		{Name: "resume", Usage: "resume <task>", Desc: "Resume a suspended task.", Run: cmdResume},
		{Name: "version", Usage: "version", Desc: "Show build version.", Run: cmdVersion},
	}
}

// monitor is the serial command console. Input bytes arrive through rx from
// the receive pump; output goes straight to the serial port.
func (s *system) monitor(rx *kernel.Queue[byte]) func() {
	return func() {
		s.printLine("ember " + buildinfo.Short() + "  (help for commands)")
		var line []byte
		for {
			b, err := rx.Receive(kernel.Forever)
			if err != nil {
				continue
			}
			switch b {
			case '\r', '\n':
				if len(line) == 0 {
					continue
				}
				s.dispatch(string(line))
				line = line[:0]
			case 0x08, 0x7F: // backspace
				if len(line) > 0 {
					line = line[:len(line)-1]
				}
			default:
				if len(line) < 128 {
					line = append(line, b)
				}
			}
		}
	}
}

func (s *system) dispatch(input string) {
	args, err := shlex.Split(input)
	if err != nil {
		s.printLine("parse error: " + err.Error())
		return
	}
	if len(args) == 0 {
		return
	}
	for _, cmd := range commands {
		if cmd.Name == args[0] {
			if out := cmd.Run(s, args[1:]); out != "" {
				s.printLine(out)
			}
			return
		}
	}
	s.printLine("unknown command: " + args[0])
}

func (s *system) printLine(line string) {
	if w := s.h.Serial(); w != nil {
		w.Write([]byte(line))
		w.Write([]byte("\r\n"))
	}
}

func cmdHelp(s *system, _ []string) string {
	var b strings.Builder
	for _, cmd := range commands {
		fmt.Fprintf(&b, "%-16s %s\r\n", cmd.Usage, cmd.Desc)
	}
	return strings.TrimSuffix(b.String(), "\r\n")
}

func cmdPs(s *system, _ []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-9s %-5s %-7s %s\r\n", "NAME", "STATE", "PRIO", "STACK", "FREE")
	for _, ti := range s.k.Snapshot() {
		prio := fmt.Sprintf("%d", ti.Base)
		if ti.Effective != ti.Base {
			prio = fmt.Sprintf("%d>%d", ti.Base, ti.Effective)
		}
		fmt.Fprintf(&b, "%-10s %-9s %-5s %-7d %d\r\n", ti.Name, ti.State, prio, ti.StackSize, ti.StackFree)
	}
	return strings.TrimSuffix(b.String(), "\r\n")
}

func cmdTicks(s *system, _ []string) string {
	return fmt.Sprintf("%d", s.k.TickCount())
}

func cmdFree(s *system, _ []string) string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	used := bytesize.New(float64(ms.HeapAlloc))
	total := bytesize.New(float64(ms.HeapSys))
	return fmt.Sprintf("heap %s of %s", used, total)
}

func cmdSuspend(s *system, args []string) string {
	if len(args) != 1 {
		return "usage: suspend <task>"
	}
	t := s.taskByName(args[0])
	if t == nil {
		return "no such task: " + args[0]
	}
	if err := s.k.Suspend(t); err != nil {
		return "suspend: " + err.Error()
	}
	return args[0] + " suspended"
}

func cmdResume(s *system, args []string) string {
	if len(args) != 1 {
		return "usage: resume <task>"
	}
	t := s.taskByName(args[0])
	if t == nil {
		return "no such task: " + args[0]
	}
	if err := s.k.Resume(t); err != nil {
		return "resume: " + err.Error()
	}
	return args[0] + " resumed"
}

func cmdVersion(s *system, _ []string) string {
	out := buildinfo.Short()
	if buildinfo.Date != "" {
		out += " (" + buildinfo.Date + ")"
	}
	return out
}
