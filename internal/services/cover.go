package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/courseloom/courseloom-backend/internal/logger"
)

const coverSize = 1024

// CoverService prepares course cover images: it normalizes model-generated
// images to the standard size and renders a local placeholder cover when
// image generation is unavailable.
type CoverService interface {
	ProcessGeneratedCover(raw []byte) (bytes.Buffer, error)
	RenderPlaceholderCover(title string) (bytes.Buffer, error)
}

type coverService struct {
	log      *logger.Logger
	fontFace font.Face
	palette  []color.NRGBA
}

func NewCoverService(log *logger.Logger) (CoverService, error) {
	serviceLog := log.With("service", "CoverService")

	fontPath := os.Getenv("COVER_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("Env var COVER_FONT is empty")
	}
	serviceLog.Info("Loading cover font", "font", fontPath)

	face, err := loadFontFace(fontPath, 220)
	if err != nil {
		return nil, fmt.Errorf("could not load cover font: %w", err)
	}

	return &coverService{
		log:      serviceLog,
		fontFace: face,
		palette: []color.NRGBA{
			{R: 0x3F, G: 0x51, B: 0xB5, A: 0xFF},
			{R: 0x00, G: 0x89, B: 0x7B, A: 0xFF},
			{R: 0xC2, G: 0x41, B: 0x5C, A: 0xFF},
			{R: 0x6A, G: 0x4C, B: 0x93, A: 0xFF},
			{R: 0xEF, G: 0x6C, B: 0x00, A: 0xFF},
			{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF},
		},
	}, nil
}

// ProcessGeneratedCover decodes a model-generated image and scales it to the
// standard cover size.
func (cs *coverService) ProcessGeneratedCover(raw []byte) (bytes.Buffer, error) {
	var out bytes.Buffer

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return out, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, coverSize, coverSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	dc := gg.NewContextForRGBA(dst)
	if err := dc.EncodePNG(&out); err != nil {
		return out, fmt.Errorf("encode png: %w", err)
	}
	return out, nil
}

// RenderPlaceholderCover draws a flat cover with the course initials on a
// color picked deterministically from the title.
func (cs *coverService) RenderPlaceholderCover(title string) (bytes.Buffer, error) {
	var out bytes.Buffer

	dc := gg.NewContext(coverSize, coverSize)

	base := cs.pickColor(title)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, coverSize, coverSize)
	dc.Fill()

	initials := computeInitials(title)

	dc.SetFontFace(cs.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(coverSize)/2, float64(coverSize)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2), cy+(th/2))

	if err := dc.EncodePNG(&out); err != nil {
		return out, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return out, nil
}

func (cs *coverService) pickColor(title string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	return cs.palette[int(h.Sum32())%len(cs.palette)]
}

func computeInitials(title string) string {
	words := strings.Fields(strings.TrimSpace(title))
	if len(words) == 0 {
		return "?"
	}
	initials := strings.ToUpper(string([]rune(words[0])[0]))
	if len(words) > 1 {
		initials += strings.ToUpper(string([]rune(words[1])[0]))
	}
	return initials
}

func loadFontFace(path string, points float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	f, err := truetype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}
