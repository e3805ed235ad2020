package utils

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

// LeaderboardRow is one rendered line of the standings card.
type LeaderboardRow struct {
	Rank   int
	Name   string
	Points int64
	Prize  string
}

const (
	cardWidth     = 640
	cardHeaderH   = 70
	cardRowH      = 46
	cardPadding   = 24
	maxNameRender = 28
)

// RenderLeaderboardCard draws the standings as a PNG for embedding in the
// leaderboard reply and the monthly report post.
func RenderLeaderboardCard(title string, rows []LeaderboardRow) ([]byte, error) {
	height := cardHeaderH + cardRowH*len(rows) + cardPadding
	dc := gg.NewContext(cardWidth, height)

	// Background
	dc.SetColor(color.RGBA{47, 49, 54, 255})
	dc.DrawRectangle(0, 0, cardWidth, float64(height))
	dc.Fill()

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	titleFace := truetype.NewFace(font, &truetype.Options{Size: 28})
	rowFace := truetype.NewFace(font, &truetype.Options{Size: 20})

	dc.SetFontFace(titleFace)
	dc.SetColor(color.RGBA{255, 215, 0, 255})
	dc.DrawStringAnchored(title, cardWidth/2, cardHeaderH/2, 0.5, 0.5)

	dc.SetFontFace(rowFace)
	for i, row := range rows {
		y := float64(cardHeaderH + i*cardRowH)

		// Alternating row stripe
		if i%2 == 0 {
			dc.SetColor(color.RGBA{54, 57, 63, 255})
			dc.DrawRectangle(0, y, cardWidth, cardRowH)
			dc.Fill()
		}

		midY := y + cardRowH/2

		dc.SetColor(rankColor(row.Rank))
		dc.DrawStringAnchored(fmt.Sprintf("#%d", row.Rank), cardPadding+16, midY, 0.5, 0.5)

		name := row.Name
		if len(name) > maxNameRender {
			name = name[:maxNameRender-1] + "…"
		}
		dc.SetColor(color.White)
		dc.DrawStringAnchored(name, cardPadding+70, midY, 0, 0.5)

		pointsLabel := fmt.Sprintf("%d pts", row.Points)
		if row.Prize != "" {
			pointsLabel = fmt.Sprintf("%d pts · %s", row.Points, row.Prize)
		}
		dc.SetColor(color.RGBA{185, 187, 190, 255})
		dc.DrawStringAnchored(pointsLabel, cardWidth-cardPadding, midY, 1, 0.5)
	}

	buf := new(bytes.Buffer)
	if err := dc.EncodePNG(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rankColor(rank int) color.Color {
	switch rank {
	case 1:
		return color.RGBA{255, 215, 0, 255}
	case 2:
		return color.RGBA{192, 192, 192, 255}
	case 3:
		return color.RGBA{205, 127, 50, 255}
	default:
		return color.RGBA{185, 187, 190, 255}
	}
}
