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
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxBannerWidth  = 1200
	jpegQuality     = 80
	maxBannerSize   = 20 << 20 // 20MB
	bannersSubdir   = "banners"
	bannerURLPrefix = "/banners/"
)

// processBanner decodes an image from src, downscales it to maxBannerWidth
// when wider, and encodes it as JPEG.
func processBanner(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxBannerWidth {
		newH := h * maxBannerWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxBannerWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// localizeBanner downloads the banner at url, writes the processed copy to
// <outDir>/banners/<slug>.jpg and returns its site-relative URL.
func localizeBanner(ctx context.Context, client *http.Client, outDir, slug, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("banner request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download banner: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download banner: unexpected status %s", res.Status)
	}

	data, err := processBanner(io.LimitReader(res.Body, maxBannerSize))
	if err != nil {
		return "", err
	}

	dir := filepath.Join(outDir, bannersSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create banners dir: %w", err)
	}
	name := slug + ".jpg"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write banner: %w", err)
	}
	return bannerURLPrefix + name, nil
}
