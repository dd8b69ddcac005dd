package badge

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/ikkim/staycert-backend/pkg/logger"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// Uploader stores a rendered asset and returns its public URL.
type Uploader interface {
	Upload(folder, ext, contentType string, body []byte) (string, error)
}

type Details struct {
	CertificateNumber string
	PropertyName      string
	Address           string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	VerificationURL   string
}

type Assets struct {
	BadgeURL  string
	QRCodeURL string
}

var ErrNoVerificationURL = errors.New("badge: verification URL is required")

var badgeTemplate = template.Must(template.New("badge").Funcs(template.FuncMap{
	"xml":  xmlEscape,
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="360" height="140" viewBox="0 0 360 140">
  <rect x="1" y="1" width="358" height="138" rx="12" fill="#ffffff" stroke="#1f7a4d" stroke-width="2"/>
  <text x="20" y="34" font-family="Helvetica, Arial, sans-serif" font-size="18" font-weight="bold" fill="#1f7a4d">Certified Short-Term Rental</text>
  <text x="20" y="62" font-family="Helvetica, Arial, sans-serif" font-size="14" fill="#222">{{xml .PropertyName}}</text>
  <text x="20" y="82" font-family="Helvetica, Arial, sans-serif" font-size="12" fill="#555">{{xml .Address}}</text>
  <text x="20" y="106" font-family="Helvetica, Arial, sans-serif" font-size="12" fill="#222">{{xml .CertificateNumber}}</text>
  <text x="20" y="124" font-family="Helvetica, Arial, sans-serif" font-size="11" fill="#555">Valid {{date .IssuedAt}} to {{date .ExpiresAt}}</text>
  <a href="{{xml .VerificationURL}}"><text x="250" y="124" font-family="Helvetica, Arial, sans-serif" font-size="11" fill="#1f7a4d">Verify</text></a>
</svg>
`))

func xmlEscape(s string) string {
	var buf bytes.Buffer
	template.HTMLEscape(&buf, []byte(s))
	return buf.String()
}

// Generator renders the SVG badge and the QR code of the verification URL and uploads both.
type Generator struct {
	uploader Uploader
	folder   string
}

func NewGenerator(uploader Uploader) *Generator {
	return &Generator{uploader: uploader, folder: "badges"}
}

// RenderSVG renders the badge without uploading it.
func RenderSVG(d Details) ([]byte, error) {
	var buf bytes.Buffer
	if err := badgeTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("render badge: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderQR encodes the verification URL as a PNG.
func RenderQR(verificationURL string) ([]byte, error) {
	if verificationURL == "" {
		return nil, ErrNoVerificationURL
	}
	png, err := qrcode.Encode(verificationURL, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

func (g *Generator) Generate(d Details) (*Assets, error) {
	svg, err := RenderSVG(d)
	if err != nil {
		return nil, err
	}
	png, err := RenderQR(d.VerificationURL)
	if err != nil {
		return nil, err
	}

	folder := fmt.Sprintf("%s/%s", g.folder, d.CertificateNumber)
	badgeURL, err := g.uploader.Upload(folder, ".svg", "image/svg+xml", svg)
	if err != nil {
		return nil, fmt.Errorf("upload badge: %w", err)
	}
	qrURL, err := g.uploader.Upload(folder, ".png", "image/png", png)
	if err != nil {
		return nil, fmt.Errorf("upload qr code: %w", err)
	}

	logger.Debug("Badge assets uploaded", map[string]interface{}{
		"certificate_number": d.CertificateNumber,
		"badge_url":          badgeURL,
		"qr_code_url":        qrURL,
	})
	return &Assets{BadgeURL: badgeURL, QRCodeURL: qrURL}, nil
}
