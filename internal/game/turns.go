package game

// rotation walks players in join order, skipping anyone marked out.
type rotation struct {
	ids []string
	out map[string]bool
	pos int
}

func newRotation(players []Player, start int) *rotation {
	r := &rotation{out: make(map[string]bool)}
	for _, p := range players {
		r.ids = append(r.ids, p.ID)
	}
	if len(r.ids) > 0 {
		r.pos = start % len(r.ids)
	}
	return r
}

func (r *rotation) current() string {
	if len(r.ids) == 0 || r.out[r.ids[r.pos]] {
		return ""
	}
	return r.ids[r.pos]
}

// advance moves to the next player still in. It reports whether the pointer
// wrapped past the end of the order.
func (r *rotation) advance() (wrapped bool) {
	for range r.ids {
		r.pos++
		if r.pos >= len(r.ids) {
			r.pos = 0
			wrapped = true
		}
		if !r.out[r.ids[r.pos]] {
			return wrapped
		}
	}
	return wrapped
}

func (r *rotation) remove(id string) { r.out[id] = true }

func (r *rotation) alive() []string {
	var out []string
	for _, id := range r.ids {
		if !r.out[id] {
			out = append(out, id)
		}
	}
	return out
}

func (r *rotation) removed() []string {
	out := []string{}
	for _, id := range r.ids {
		if r.out[id] {
			out = append(out, id)
		}
	}
	return out
}
