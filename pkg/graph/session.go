package graph

import "github.com/orneryd/graphkv/pkg/kv"

// tsFilter is the per-caller time-travel window, per §4.4's "thread-scoped
// optional filter descriptor (start?, end?)."
type tsFilter struct {
	start, end       uint64
	hasStart, hasEnd bool
}

// Session is the explicit, per-caller handle spec's own Design Notes §9
// recommends in place of true goroutine-local storage (which Go does not
// expose): element reads and writes are methods on Session (index
// management, flush and lifecycle calls stay on Graph), and the
// time-travel filter lives on the Session value rather than on the shared
// Graph. A Session is safe for use from one goroutine at a time; concurrent
// callers should each hold a distinct Session for isolation.
type Session struct {
	graph  *Graph
	filter *tsFilter
}

// EnableTimestampFilter configures this session's time-travel window.
// At least one of hasStart/hasEnd must be true; if both are true, start
// must not exceed end. The filter is attached to every subsequent element
// scan issued by this session (not to index scans, nor to writes) until
// DisableTimestampFilter is called.
func (s *Session) EnableTimestampFilter(start uint64, hasStart bool, end uint64, hasEnd bool) error {
	if !hasStart && !hasEnd {
		return ErrInvalidFilter
	}
	if hasStart && hasEnd && start > end {
		return ErrInvalidFilter
	}
	s.filter = &tsFilter{start: start, end: end, hasStart: hasStart, hasEnd: hasEnd}
	return nil
}

// DisableTimestampFilter clears this session's time-travel window.
func (s *Session) DisableTimestampFilter() {
	s.filter = nil
}

// elementFilter returns the kv.Filter realizing this session's active
// timestamp window, or nil if none is set.
func (s *Session) elementFilter() kv.Filter {
	if s.filter == nil {
		return nil
	}
	return kv.NewTimestampFilter(s.filter.start, s.filter.hasStart, s.filter.end, s.filter.hasEnd)
}

func attachIfPresent(scanner *kv.Scanner, f kv.Filter) {
	if f != nil {
		scanner.AttachFilter(f)
	}
}
