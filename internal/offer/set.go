package offer

// mapCodeSet implements CodeSet using a map.
type mapCodeSet struct {
	codes map[string]struct{}
}

// NewCodeSet creates a new map-based code set.
func NewCodeSet(capacity int) CodeSet {
	return &mapCodeSet{
		codes: make(map[string]struct{}, capacity),
	}
}

// Add inserts code, reporting false if it was already present.
func (s *mapCodeSet) Add(code string) bool {
	if _, exists := s.codes[code]; exists {
		return false
	}
	s.codes[code] = struct{}{}
	return true
}
