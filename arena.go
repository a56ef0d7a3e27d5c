package bridge

// arena indexes every live handle by native address. Several handles can
// share an address when a value is pushed under more than one tag.
type arena struct {
	byAddr map[Addr]map[*Handle]struct{}
	n      int
}

func newArena() *arena {
	return &arena{byAddr: make(map[Addr]map[*Handle]struct{})}
}

func (a *arena) add(h *Handle) {
	set, ok := a.byAddr[h.addr]
	if !ok {
		set = make(map[*Handle]struct{})
		a.byAddr[h.addr] = set
	}
	set[h] = struct{}{}
	a.n++
}

func (a *arena) remove(h *Handle) {
	set, ok := a.byAddr[h.addr]
	if !ok {
		return
	}
	if _, ok := set[h]; !ok {
		return
	}
	delete(set, h)
	a.n--
	if len(set) == 0 {
		delete(a.byAddr, h.addr)
	}
}

// at returns the handles boxing addr.
func (a *arena) at(addr Addr) []*Handle {
	set := a.byAddr[addr]
	hs := make([]*Handle, 0, len(set))
	for h := range set {
		hs = append(hs, h)
	}
	return hs
}

func (a *arena) all() []*Handle {
	hs := make([]*Handle, 0, a.n)
	for _, set := range a.byAddr {
		for h := range set {
			hs = append(hs, h)
		}
	}
	return hs
}

func (a *arena) len() int { return a.n }
