package notebook

// CellDTO is the JSON-serializable projection of a Cell used for
// persistence (SPEC_FULL §6.1). Status, Outputs, Stdout, and ErrorText are
// runtime-only (SPEC_FULL §3) and intentionally omitted.
type CellDTO struct {
	ID       ID       `json:"id"`
	Kind     Kind     `json:"kind"`
	Source   string   `json:"source"`
	Position int      `json:"position"`
}

// ToDTOs projects the notebook's cells for persistence.
func (n *Notebook) ToDTOs() []CellDTO {
	out := make([]CellDTO, len(n.cells))
	for i, c := range n.cells {
		out[i] = CellDTO{ID: c.ID, Kind: c.Kind, Source: c.Source, Position: c.Position}
	}
	return out
}

// LoadDTOs rebuilds the notebook's cell list from persisted DTOs. R/W sets
// are left empty; callers must re-run the analyzer on each cell after load
// (the Coordinator does this once when binding a loaded notebook).
func (n *Notebook) LoadDTOs(dtos []CellDTO) {
	n.cells = make([]*Cell, len(dtos))
	n.byID = make(map[ID]*Cell, len(dtos))
	for i, d := range dtos {
		c := &Cell{
			ID:       d.ID,
			Kind:     d.Kind,
			Source:   d.Source,
			Status:   StatusIdle,
			Reads:    map[string]struct{}{},
			Writes:   map[string]struct{}{},
			Position: i,
		}
		n.cells[i] = c
		n.byID[c.ID] = c
	}
}
