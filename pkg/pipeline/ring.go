package pipeline

import (
	"bufio"
	"strings"
	"sync"
)

// lineRing keeps the last N lines written to it.
type lineRing struct {
	mu    sync.Mutex
	lines []string
	head  int
	count int
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = 1
	}
	return &lineRing{lines: make([]string, capacity)}
}

func (r *lineRing) push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// Lines returns the retained lines oldest first.
func (r *lineRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// String joins the retained lines.
func (r *lineRing) String() string {
	return strings.Join(r.Lines(), "\n")
}

// drainInto reads r until EOF or a read error, keeping non-empty lines.
func drainInto(r *bufio.Reader, ring *lineRing) {
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			ring.push(line)
		}
		if err != nil {
			return
		}
	}
}
