package model

// Gate is a physical check-in point. It is immutable once loaded.
type Gate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindGate returns the gate with the given id from a gate listing.
func FindGate(gates []Gate, id string) (Gate, bool) {
	for _, g := range gates {
		if g.ID == id {
			return g, true
		}
	}
	return Gate{}, false
}
