// Package asset stores uploaded images for image items and serves them back.
package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/inamate/stepcanvas/internal/document"
	"github.com/inamate/stepcanvas/internal/typeid"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxDimension  = 2048
	// Decoded size limit; a small compressed file can declare a huge canvas.
	maxSourcePixels = 40_000_000
)

var acceptedTypes = []string{"image/png", "image/jpeg", "image/webp", "image/tiff"}

// UploadResponse describes a stored image. Item is an image item sized to
// the picture, ready to be sent with item.add.
type UploadResponse struct {
	ID     string         `json:"id"`
	URL    string         `json:"url"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Name   string         `json:"name"`
	Item   *document.Item `json:"item"`
}

type Handler struct {
	dir string
}

// NewHandler stores files in dir, creating it if needed.
func NewHandler(dir string) (*Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Handler{dir: dir}, nil
}

// Upload handles a multipart form with a "file" field holding a PNG, JPEG,
// WebP or TIFF image. Images are stored as PNG, scaled down so that neither
// side exceeds maxDimension.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	contentType, _, _ := strings.Cut(header.Header.Get("Content-Type"), ";")
	if !slices.Contains(acceptedTypes, strings.TrimSpace(contentType)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only PNG, JPEG, WebP and TIFF images are supported"})
		return
	}

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image"})
		return
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		slog.Warn("asset rejected", "reason", "dimensions", "width", cfg.Width, "height", cfg.Height)
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "image dimensions too large"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read file"})
		return
	}

	img, format, err := image.Decode(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid image"})
		return
	}
	img = fit(img, maxDimension)
	bounds := img.Bounds()

	assetID := typeid.NewAssetID()
	filePath := filepath.Join(h.dir, assetID+".png")
	if err := writePNG(filePath, img); err != nil {
		slog.Error("store asset", "error", err, "asset", assetID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	url := "/assets/" + assetID + ".png"
	item := document.NewItem(document.ItemTypeImage, 0, 0, float64(bounds.Dx()), float64(bounds.Dy()))
	item.Props["src"] = url
	item.Props["alt"] = header.Filename

	slog.Info("asset stored", "asset", assetID, "format", format, "width", bounds.Dx(), "height", bounds.Dy())
	writeJSON(w, http.StatusCreated, UploadResponse{
		ID:     assetID,
		URL:    url,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Name:   header.Filename,
		Item:   item,
	})
}

// Serve returns a handler for /assets/{id}.png. Asset files never change.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(r.URL.Path, ".png")
		if typeid.Validate(id, typeid.PrefixAsset) != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// fit scales img down, keeping its aspect ratio, until both sides are at
// most limit. Smaller images are returned unchanged.
func fit(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}
	if w >= h {
		h = max(1, h*limit/w)
		w = limit
	} else {
		w = max(1, w*limit/h)
		h = limit
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
