package issuance

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"docverify/internal/common/config"
	apperrors "docverify/internal/common/errors"
)

// Certificate is what gets printed when no retained or registry file exists.
type Certificate struct {
	CitizenName    string
	CitizenID      string
	DocumentType   string
	VerificationID string
	IssuedAt       time.Time
}

type CertificateRenderer struct {
	width    int
	height   int
	fontPath string
	fontSize float64
	issuer   string
}

func NewCertificateRenderer(cfg config.CertificateConfig) *CertificateRenderer {
	r := &CertificateRenderer{
		width:    cfg.Width,
		height:   cfg.Height,
		fontPath: cfg.FontPath,
		fontSize: float64(cfg.FontSize),
		issuer:   cfg.Issuer,
	}
	if r.width <= 0 {
		r.width = 1200
	}
	if r.height <= 0 {
		r.height = 800
	}
	if r.fontSize <= 0 {
		r.fontSize = 28
	}
	if r.issuer == "" {
		r.issuer = "Civil Registration Office"
	}
	return r
}

// Render draws the certificate as PNG. Without a font path the built-in
// bitmap face is used.
func (r *CertificateRenderer) Render(c Certificate) ([]byte, error) {
	dc := gg.NewContext(r.width, r.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB255(20, 60, 120)
	dc.SetLineWidth(8)
	dc.DrawRectangle(24, 24, float64(r.width-48), float64(r.height-48))
	dc.Stroke()

	if r.fontPath != "" {
		if err := dc.LoadFontFace(r.fontPath, r.fontSize); err != nil {
			return nil, apperrors.NewArtifactGenerationError(fmt.Errorf("load font %s: %w", r.fontPath, err))
		}
	} else {
		dc.SetFontFace(basicfont.Face7x13)
	}

	lines := []string{
		strings.ToUpper(r.issuer),
		"CERTIFIED COPY: " + strings.ToUpper(strings.ReplaceAll(c.DocumentType, "_", " ")),
		"",
		"Holder: " + c.CitizenName,
		"ID number: " + c.CitizenID,
		"Issued: " + c.IssuedAt.UTC().Format("2006-01-02"),
		"",
		"Verification ID: " + c.VerificationID,
	}
	cx := float64(r.width) / 2
	step := float64(r.height) / float64(len(lines)+3)
	dc.SetRGB(0.1, 0.1, 0.1)
	for i, line := range lines {
		if line == "" {
			continue
		}
		dc.DrawStringAnchored(line, cx, step*float64(i+2), 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, apperrors.NewArtifactGenerationError(fmt.Errorf("encode certificate: %w", err))
	}
	return buf.Bytes(), nil
}
