package pipeline

// candidate is one discovered identifier and its best-known URL.
type candidate struct {
	asin   string
	url    string
	source string
}

// discoveryMap is an insertion-ordered set of candidates keyed by
// identifier. Order matters: verification processes candidates in the order
// discovery found them, and membership checks must be O(1).
type discoveryMap struct {
	order []string
	items map[string]candidate
}

func newDiscoveryMap() *discoveryMap {
	return &discoveryMap{items: make(map[string]candidate)}
}

// add inserts a candidate unless the identifier is already present.
// Reports whether the candidate was new.
func (m *discoveryMap) add(c candidate) bool {
	if _, exists := m.items[c.asin]; exists {
		return false
	}
	m.items[c.asin] = c
	m.order = append(m.order, c.asin)
	return true
}

func (m *discoveryMap) has(asin string) bool {
	_, ok := m.items[asin]
	return ok
}

func (m *discoveryMap) get(asin string) (candidate, bool) {
	c, ok := m.items[asin]
	return c, ok
}

func (m *discoveryMap) len() int {
	return len(m.order)
}

// all returns candidates in insertion order.
func (m *discoveryMap) all() []candidate {
	out := make([]candidate, 0, len(m.order))
	for _, asin := range m.order {
		out = append(out, m.items[asin])
	}
	return out
}

func (m *discoveryMap) first() (candidate, bool) {
	if len(m.order) == 0 {
		return candidate{}, false
	}
	return m.items[m.order[0]], true
}
