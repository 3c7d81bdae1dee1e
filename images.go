package spacetraveling

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"

	"golang.org/x/image/draw"
)

const (
	maxBannerWidth = 1200
	jpegQuality    = 80
	maxBannerSize  = 20 << 20 // 20MB
	bannersSubdir  = "banners"
)

// processImage decodes an image from src, resizes it down to maxWidth if it
// is wider, and encodes it as JPEG.
func processImage(src io.Reader, maxWidth int) ([]byte, image.Point, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), image.Pt(w, h), nil
}

// optimizeBanner downloads a post's banner, resizes it and writes it under
// public/banners in the output dir. It returns the site path of the copy.
func (a *App) optimizeBanner(ctx context.Context, slug, bannerURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bannerURL, nil)
	if err != nil {
		return "", err
	}
	hc := a.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: a.Config.APITimeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch banner: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch banner: status %d", resp.StatusCode)
	}

	data, _, err := processImage(io.LimitReader(resp.Body, maxBannerSize), maxBannerWidth)
	if err != nil {
		return "", err
	}
	name := slug + ".jpg"
	if err := writeFile(filepath.Join(a.Config.OutputDir, "public", bannersSubdir, name), data); err != nil {
		return "", fmt.Errorf("write banner: %w", err)
	}
	return "/public/" + bannersSubdir + "/" + name, nil
}
