package route

// Switch is a crossbar switch between a horizontal and a vertical bus.
type Switch struct {
	Horizontal Vertex `json:"horizontal"`
	Vertical   Vertex `json:"vertical"`
}

// switchTable records which buses already serve a switch. Every bus takes
// part in at most one switch; both directions are stored.
type switchTable struct {
	used map[Vertex]Vertex
	log  []Vertex
}

func newSwitchTable() *switchTable {
	return &switchTable{used: make(map[Vertex]Vertex)}
}

// reset drops all switches.
func (t *switchTable) reset() {
	clear(t.used)
	t.log = t.log[:0]
}

// begin starts a transaction.
func (t *switchTable) begin() {
	t.log = t.log[:0]
}

// claim records s unless one of its buses already serves a switch.
func (t *switchTable) claim(s Switch) bool {
	if _, ok := t.used[s.Horizontal]; ok {
		return false
	}
	if _, ok := t.used[s.Vertical]; ok {
		return false
	}
	t.used[s.Horizontal] = s.Vertical
	t.used[s.Vertical] = s.Horizontal
	t.log = append(t.log, s.Horizontal, s.Vertical)
	return true
}

// rollback undoes every claim since begin.
func (t *switchTable) rollback() {
	for _, v := range t.log {
		delete(t.used, v)
	}
	t.log = t.log[:0]
}

// commit keeps every claim since begin.
func (t *switchTable) commit() {
	t.log = t.log[:0]
}
