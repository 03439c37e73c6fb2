package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyFilter is the set of scan codes that do not count as activity.
// It is built once and only read afterwards, so readers share it freely.
type KeyFilter struct {
	ignored map[int32]struct{}
}

// NewKeyFilter builds a filter from raw scan codes.
func NewKeyFilter(codes []int32) *KeyFilter {
	f := &KeyFilter{ignored: make(map[int32]struct{}, len(codes))}
	for _, c := range codes {
		f.ignored[c] = struct{}{}
	}
	return f
}

// Ignored reports whether a scan code is excluded from counting as activity.
func (f *KeyFilter) Ignored(code int32) bool {
	if f == nil {
		return false
	}
	_, ok := f.ignored[code]
	return ok
}

// Codes returns the ignored scan codes in ascending order.
func (f *KeyFilter) Codes() []int32 {
	if f == nil {
		return nil
	}
	out := make([]int32, 0, len(f.ignored))
	for c := range f.ignored {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// scanSuppressor is the per-reader half of the filter: after an ignored
// scan code it swallows the key-state events that belong to the same press.
type scanSuppressor struct {
	pending int
}

// admit classifies ev and reports whether it counts as activity.
func (s *scanSuppressor) admit(f *KeyFilter, ev inputEvent) bool {
	if ev.isScanCode() && f.Ignored(ev.Value) {
		s.pending = followUpEvents
		return false
	}
	if s.pending > 0 {
		s.pending--
		return false
	}
	return true
}

// parseKeyCodes parses a comma-separated list of scan codes such as "10,20,30".
// Values use strconv base 0, so hex (0x70029) is accepted as well.
func parseKeyCodes(s string) ([]int32, error) {
	var out []int32
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseInt(tok, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid key code %q: %w", tok, err)
		}
		out = append(out, int32(v))
	}
	return out, nil
}
