package wiki

import (
	"regexp"
	"strings"
)

// Segment is a run of consecutive page lines sharing a scanner state.
// Concatenating the Text of every segment reproduces the page exactly.
type Segment struct {
	Text  string
	Code  bool   // inside a fenced code block
	Class string // enclosing class section, if any
}

type scanState int

const (
	stateProse scanState = iota
	stateCodeFence
	stateClassSection
)

var headingLine = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)

// Scanner splits markdown into prose and fenced-code segments, and tracks
// class sections: a heading naming a known class opens one, and a heading of
// the same or a higher level closes it.
type Scanner struct {
	isClass func(name string) bool
}

// NewScanner returns a scanner that treats names accepted by isClass as
// class headings. A nil isClass disables class sections.
func NewScanner(isClass func(name string) bool) *Scanner {
	if isClass == nil {
		isClass = func(string) bool { return false }
	}
	return &Scanner{isClass: isClass}
}

// Scan splits content into segments. A fence line belongs to its code
// segment.
func (s *Scanner) Scan(content string) []Segment {
	var (
		segs       []Segment
		state      = stateProse
		resume     = stateProse // state to return to when a fence closes
		class      string
		classLevel int
		fence      string
	)
	emit := func(line string) {
		seg := Segment{Text: line, Code: state == stateCodeFence, Class: class}
		if n := len(segs); n > 0 && segs[n-1].Code == seg.Code && segs[n-1].Class == seg.Class {
			segs[n-1].Text += line
			return
		}
		segs = append(segs, seg)
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		if line == "" {
			continue
		}
		trimmed := strings.TrimSpace(line)

		switch state {
		case stateCodeFence:
			emit(line)
			if fence != "" && strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, "`~") == "" {
				state, fence = resume, ""
			}
			continue

		case stateProse, stateClassSection:
			if f := fenceMarker(trimmed); f != "" {
				resume, state, fence = state, stateCodeFence, f
				emit(line)
				continue
			}
			if m := headingLine.FindStringSubmatch(trimmed); m != nil {
				level := len(m[1])
				if state == stateClassSection && level <= classLevel {
					state, class, classLevel = stateProse, "", 0
				}
				if name := s.headingClass(m[2]); name != "" {
					state, class, classLevel = stateClassSection, name, level
				}
			}
			emit(line)
		}
	}
	return segs
}

// fenceMarker returns the opening fence of a code block line, or "".
func fenceMarker(trimmed string) string {
	for _, ch := range []string{"`", "~"} {
		n := 0
		for n < len(trimmed) && trimmed[n] == ch[0] {
			n++
		}
		if n >= 3 {
			return trimmed[:n]
		}
	}
	return ""
}

// headingClass returns the first word of a heading that names a class.
func (s *Scanner) headingClass(text string) string {
	for _, field := range strings.Fields(text) {
		name := strings.Trim(field, "`*_()[]:,")
		if name != "" && s.isClass(name) {
			return name
		}
	}
	return ""
}
