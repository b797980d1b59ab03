package pipeline

import (
	"os/exec"
	"sync"
	"time"
)

type stopMode int

const (
	stopGraceful stopMode = iota
	stopForce
)

// process owns one child and its single Wait call.
type process struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// startProcess starts cmd in its own process group and reaps it in the background.
func startProcess(name string, cmd *exec.Cmd) (*process, error) {
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		name: name,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		p.err = p.cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *process) pid() int {
	if p == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// exitErr blocks until the process was reaped and returns its Wait error.
func (p *process) exitErr() error {
	<-p.done
	return p.err
}

// waitExit waits up to grace for the process to exit and returns its Wait
// error. A process still running after grace yields nil.
func (p *process) waitExit(grace time.Duration) error {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return p.err
	case <-timer.C:
		return nil
	}
}

func (p *process) signal(mode stopMode) {
	if p.exited() {
		return
	}
	signal := "SIGTERM"
	if mode == stopForce {
		signal = "SIGKILL"
	}
	if err := signalGroup(p.cmd, mode); err != nil {
		terminateTotal.WithLabelValues(signal, "error").Inc()
		return
	}
	terminateTotal.WithLabelValues(signal, "sent").Inc()
}

// terminateAll signals every process to stop, waits up to grace for them to
// exit, force-kills the rest and reaps all of them.
func terminateAll(grace time.Duration, procs ...*process) {
	var wg sync.WaitGroup
	for _, p := range procs {
		if p == nil {
			continue
		}
		p.signal(stopGraceful)

		wg.Add(1)
		go func(p *process) {
			defer wg.Done()
			timer := time.NewTimer(grace)
			defer timer.Stop()

			select {
			case <-p.done:
				return
			case <-timer.C:
			}
			p.signal(stopForce)
			<-p.done
		}(p)
	}
	wg.Wait()
}
