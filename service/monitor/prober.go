package monitor

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/c9s/goprocinfo/linux"
	"golang.org/x/sys/unix"
)

// Liveness is the observed state of a process
type Liveness int

const (
	Alive Liveness = iota
	Gone
	Zombie
	AccessDenied
)

func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Gone:
		return "gone"
	case Zombie:
		return "zombie"
	case AccessDenied:
		return "access_denied"
	}
	return "unknown"
}

// Prober reports the liveness of a process
type Prober interface {
	Probe(pid int) (Liveness, error)
}

// ProberFunc adapts a function to Prober
type ProberFunc func(pid int) (Liveness, error)

// Probe implements Prober
func (f ProberFunc) Probe(pid int) (Liveness, error) {
	return f(pid)
}

const zombieState = "Z"

// ProcProber probes processes with signal 0 and the proc filesystem
type ProcProber struct {
	ProcRoot string
}

// Probe implements Prober
func (p *ProcProber) Probe(pid int) (Liveness, error) {
	if pid <= 0 {
		return Gone, nil
	}
	if err := unix.Kill(pid, 0); err != nil {
		switch {
		case errors.Is(err, unix.ESRCH):
			return Gone, nil
		case errors.Is(err, unix.EPERM):
			return AccessDenied, nil
		default:
			return Alive, err
		}
	}
	stat, err := linux.ReadProcessStat(filepath.Join(p.root(), strconv.Itoa(pid), "stat"))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Gone, nil
		case errors.Is(err, fs.ErrPermission):
			return AccessDenied, nil
		}
		// without a readable stat file the process is still known to exist
		return Alive, nil
	}
	if stat.State == zombieState {
		return Zombie, nil
	}
	return Alive, nil
}

func (p *ProcProber) root() string {
	if p.ProcRoot == "" {
		return "/proc"
	}
	return p.ProcRoot
}

// NewProcProber returns the default prober
func NewProcProber() *ProcProber {
	return &ProcProber{ProcRoot: "/proc"}
}
