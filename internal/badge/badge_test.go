package badge

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	folder, ext, contentType string
	body                     []byte
}

type fakeUploader struct {
	uploads []upload
	failOn  string
}

func (f *fakeUploader) Upload(folder, ext, contentType string, body []byte) (string, error) {
	if ext == f.failOn {
		return "", errors.New("s3 unavailable")
	}
	f.uploads = append(f.uploads, upload{folder, ext, contentType, body})
	return "https://cdn.example.com/" + folder + "/asset" + ext, nil
}

func details() Details {
	return Details{
		CertificateNumber: "CERT-2026-123456",
		PropertyName:      "Tom & Jerry's <Loft>",
		Address:           "1 Harbour Road",
		IssuedAt:          time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		ExpiresAt:         time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC),
		VerificationURL:   "https://verify.example.com/abc",
	}
}

func TestRenderSVG_EscapesText(t *testing.T) {
	svg, err := RenderSVG(details())
	require.NoError(t, err)

	s := string(svg)
	assert.Contains(t, s, "CERT-2026-123456")
	assert.Contains(t, s, "Tom &amp; Jerry&#39;s &lt;Loft&gt;")
	assert.Contains(t, s, "Valid 2026-01-02 to 2027-01-02")
	assert.NotContains(t, s, "<Loft>")
}

func TestRenderQR(t *testing.T) {
	png, err := RenderQR("https://verify.example.com/abc")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))

	_, err = RenderQR("")
	assert.ErrorIs(t, err, ErrNoVerificationURL)
}

func TestGenerator_Generate(t *testing.T) {
	up := &fakeUploader{}
	assets, err := NewGenerator(up).Generate(details())
	require.NoError(t, err)

	require.Len(t, up.uploads, 2)
	assert.Equal(t, "badges/CERT-2026-123456", up.uploads[0].folder)
	assert.Equal(t, "image/svg+xml", up.uploads[0].contentType)
	assert.Equal(t, "image/png", up.uploads[1].contentType)
	assert.Equal(t, "https://cdn.example.com/badges/CERT-2026-123456/asset.svg", assets.BadgeURL)
	assert.Equal(t, "https://cdn.example.com/badges/CERT-2026-123456/asset.png", assets.QRCodeURL)
}

func TestGenerator_UploadFailure(t *testing.T) {
	_, err := NewGenerator(&fakeUploader{failOn: ".png"}).Generate(details())
	assert.Error(t, err)
}
