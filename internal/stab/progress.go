package stab

import "log"

// progressLogInterval is how many frames pass between progress lines.
const progressLogInterval = 50

// progress reports pipeline progress through the standard logger. The
// original frame count may be unknown for live sources.
type progress struct {
	label   string
	total   int
	done    int
	enabled bool
}

func newProgress(label string, total, maxFrames int, enabled bool) *progress {
	if maxFrames > 0 && (total <= 0 || maxFrames < total) {
		total = maxFrames
	}
	return &progress{label: label, total: total, enabled: enabled}
}

func (p *progress) step() {
	p.done++
	if !p.enabled || p.done%progressLogInterval != 0 {
		return
	}
	p.log()
}

func (p *progress) finish() {
	if !p.enabled {
		return
	}
	p.log()
	log.Printf("%s: done", p.label)
}

func (p *progress) log() {
	if p.total > 0 {
		log.Printf("%s: %d/%d frames", p.label, p.done, p.total)
		return
	}
	log.Printf("%s: %d frames", p.label, p.done)
}
