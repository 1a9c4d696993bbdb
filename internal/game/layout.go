package game

import "github.com/google/uuid"

// backRank is the piece order of row 0 (black) and row 7 (white).
var backRank = []string{"Rook", "Knight", "Bishop", "Queen", "King", "Bishop", "Knight", "Rook"}

// InitialPieces builds the fixed starting layout: black on rows 0-1,
// white on rows 6-7, fresh figure ids for every piece.
func InitialPieces() []*Piece {
	pieces := make([]*Piece, 0, 32)

	add := func(name string, color Color, row, col int) {
		pieces = append(pieces, &Piece{
			FigureID:        uuid.NewString(),
			Name:            name,
			Color:           color,
			Row:             row,
			Col:             col,
			IsFirstMove:     true,
			UnavailableCopy: []string{},
			Mode:            1,
		})
	}

	for col, name := range backRank {
		add(name, Black, 0, col)
	}
	for col := 0; col < BoardSize; col++ {
		add("Pawn", Black, 1, col)
	}
	for col := 0; col < BoardSize; col++ {
		add("Pawn", White, 6, col)
	}
	for col, name := range backRank {
		add(name, White, 7, col)
	}

	return pieces
}
