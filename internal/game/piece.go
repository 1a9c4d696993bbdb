package game

import "encoding/json"

// Piece is one figure on the board. Beyond identity and position it carries
// a set of forward-compatibility fields (description, copy lineage, mode,
// hero/aura/condition counters) that the engine never interprets, plus an
// Extra map holding any attribute it does not recognize at all. Both are
// preserved verbatim across serialization round-trips.
type Piece struct {
	FigureID        string
	Name            string
	Color           Color
	Row             int
	Col             int
	IsFirstMove     bool
	Description     string
	CopiedFigure    *string
	UnavailableCopy []string
	Mode            int
	Hero            *string
	Death           int
	Aura            int
	Condition       int
	MoveCreation    int
	WalkCount       int
	Extra           map[string]json.RawMessage
}

// pieceWire is the JSON shape of a piece; Piece itself has custom
// marshalling so unknown keys survive in Extra.
type pieceWire struct {
	FigureID        string   `json:"figure_id"`
	Name            string   `json:"name"`
	Color           Color    `json:"color"`
	Row             int      `json:"row"`
	Col             int      `json:"col"`
	IsFirstMove     bool     `json:"is_first_move"`
	Description     string   `json:"description"`
	CopiedFigure    *string  `json:"copied_figure"`
	UnavailableCopy []string `json:"unavailable_copy"`
	Mode            int      `json:"mode"`
	Hero            *string  `json:"hero"`
	Death           int      `json:"death"`
	Aura            int      `json:"aura"`
	Condition       int      `json:"condition"`
	MoveCreation    int      `json:"move_creation"`
	WalkCount       int      `json:"walk_count"`
}

var pieceWireKeys = map[string]struct{}{
	"figure_id": {}, "name": {}, "color": {}, "row": {}, "col": {},
	"is_first_move": {}, "description": {}, "copied_figure": {},
	"unavailable_copy": {}, "mode": {}, "hero": {}, "death": {},
	"aura": {}, "condition": {}, "move_creation": {}, "walk_count": {},
}

func (p *Piece) MarshalJSON() ([]byte, error) {
	w := pieceWire{
		FigureID:        p.FigureID,
		Name:            p.Name,
		Color:           p.Color,
		Row:             p.Row,
		Col:             p.Col,
		IsFirstMove:     p.IsFirstMove,
		Description:     p.Description,
		CopiedFigure:    p.CopiedFigure,
		UnavailableCopy: p.UnavailableCopy,
		Mode:            p.Mode,
		Hero:            p.Hero,
		Death:           p.Death,
		Aura:            p.Aura,
		Condition:       p.Condition,
		MoveCreation:    p.MoveCreation,
		WalkCount:       p.WalkCount,
	}
	if w.UnavailableCopy == nil {
		w.UnavailableCopy = []string{}
	}
	known, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (p *Piece) UnmarshalJSON(data []byte) error {
	// Defaults match a freshly created figure: first move still pending,
	// standard mode.
	w := pieceWire{IsFirstMove: true, Mode: 1}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	for k, v := range raw {
		if _, ok := pieceWireKeys[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage, 2)
		}
		extra[k] = v
	}
	*p = Piece{
		FigureID:        w.FigureID,
		Name:            w.Name,
		Color:           w.Color,
		Row:             w.Row,
		Col:             w.Col,
		IsFirstMove:     w.IsFirstMove,
		Description:     w.Description,
		CopiedFigure:    w.CopiedFigure,
		UnavailableCopy: w.UnavailableCopy,
		Mode:            w.Mode,
		Hero:            w.Hero,
		Death:           w.Death,
		Aura:            w.Aura,
		Condition:       w.Condition,
		MoveCreation:    w.MoveCreation,
		WalkCount:       w.WalkCount,
		Extra:           extra,
	}
	return nil
}

// Clone returns a deep copy sharing no mutable substructure.
func (p *Piece) Clone() *Piece {
	cp := *p
	if p.CopiedFigure != nil {
		v := *p.CopiedFigure
		cp.CopiedFigure = &v
	}
	if p.Hero != nil {
		v := *p.Hero
		cp.Hero = &v
	}
	if p.UnavailableCopy != nil {
		cp.UnavailableCopy = append([]string(nil), p.UnavailableCopy...)
	}
	if p.Extra != nil {
		cp.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			cp.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &cp
}
