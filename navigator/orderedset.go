package navigator

// orderedSet keeps first-seen order and drops duplicates.
type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, values: []string{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.values = append(s.values, v)
	}
}

func (s *orderedSet) len() int {
	return len(s.values)
}

func (s *orderedSet) slice() []string {
	return s.values
}
