package bridge

// linkTracker records which handles alias storage owned by a parent, so
// that destroying the parent invalidates them.
type linkTracker struct {
	children map[Addr]map[*Handle]struct{}
}

func newLinkTracker() *linkTracker {
	return &linkTracker{children: make(map[Addr]map[*Handle]struct{})}
}

func (t *linkTracker) link(parent Addr, child *Handle) {
	if parent == 0 || child == nil {
		return
	}
	if child.parent != 0 {
		t.unlink(child)
	}
	set, ok := t.children[parent]
	if !ok {
		set = make(map[*Handle]struct{})
		t.children[parent] = set
	}
	set[child] = struct{}{}
	child.parent = parent
}

func (t *linkTracker) unlink(child *Handle) {
	set, ok := t.children[child.parent]
	if !ok {
		return
	}
	delete(set, child)
	if len(set) == 0 {
		delete(t.children, child.parent)
	}
	child.parent = 0
}

// cascadeFree marks every handle transitively linked below parent as freed,
// calling mark for each newly freed one, and drops the edges it walked. The
// walk is iterative and visits each address once, so cyclic link graphs
// terminate. It returns the number of handles marked.
func (t *linkTracker) cascadeFree(parent Addr, mark func(*Handle)) int {
	visited := map[Addr]bool{parent: true}
	stack := []Addr{parent}
	n := 0
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		set := t.children[p]
		delete(t.children, p)
		for c := range set {
			c.parent = 0
			if c.markFreed() {
				n++
				mark(c)
			}
			if !visited[c.addr] {
				visited[c.addr] = true
				stack = append(stack, c.addr)
			}
		}
	}
	return n
}

func (t *linkTracker) len() int {
	n := 0
	for _, set := range t.children {
		n += len(set)
	}
	return n
}
