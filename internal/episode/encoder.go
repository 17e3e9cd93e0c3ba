package episode

import "svw.info/playfair/internal/domain"

// Encode renders the pending pair and the table as ordinals: d1, d2, e1, e2
// followed by the 25 cells. A nil pair (stream exhausted) is encoded as four
// Unused placeholders.
func Encode(p *domain.Pair, snap domain.Snapshot) domain.Vector {
	var v domain.Vector
	if p != nil {
		for i, l := range p.Letters() {
			v[i] = int(l)
		}
	} else {
		for i := 0; i < 4; i++ {
			v[i] = domain.Unused
		}
	}
	for i, l := range snap {
		v[4+i] = int(l)
	}
	return v
}
