package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"taste3d/pkg/assets"
	"taste3d/pkg/logging"
)

const (
	// colorDifferenceThreshold is the per-channel difference (16-bit) above
	// which two sampled pixels count as different colours
	colorDifferenceThreshold = 256
	defaultThumbnailSize     = 480
)

// ProgressCallback is a function that receives progress updates
type ProgressCallback func(step string, progress int)

// ThumbnailService writes downsized copies of portfolio images
type ThumbnailService struct {
	store   assets.Store
	maxSize uint
	logger  *zap.Logger
}

// NewThumbnailService creates a service fitting thumbnails in maxSize x maxSize
func NewThumbnailService(store assets.Store, maxSize uint, logger *zap.Logger) *ThumbnailService {
	if maxSize == 0 {
		maxSize = defaultThumbnailSize
	}
	return &ThumbnailService{store: store, maxSize: maxSize, logger: logging.OrNop(logger)}
}

// GenerateThumbnail creates the thumbnail of one portfolio image
func (s *ThumbnailService) GenerateThumbnail(ctx context.Context, name string, progressCb ProgressCallback) error {
	sendProgress := func(step string, progress int) {
		if progressCb != nil {
			progressCb(step, progress)
		}
	}

	sendProgress("Reading image", 10)
	rc, err := s.store.Open(ctx, name)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", name, err)
	}
	src, _, err := image.Decode(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	sendProgress("Resizing", 40)
	thumb := resize.Thumbnail(s.maxSize, s.maxSize, src, resize.Lanczos3)

	sendProgress("Validating thumbnail", 70)
	if err := validateThumbnail(thumb); err != nil {
		return fmt.Errorf("thumbnail validation failed for %s: %w", name, err)
	}

	sendProgress("Uploading thumbnail", 85)
	w, err := s.store.Create(ctx, thumbnailName(name), "image/jpeg")
	if err != nil {
		return fmt.Errorf("error creating thumbnail for %s: %w", name, err)
	}
	if err := writeJPEG(w, thumb); err != nil {
		return fmt.Errorf("error uploading thumbnail for %s: %w", name, err)
	}

	sendProgress("Complete", 100)
	return nil
}

// BulkGenerateThumbnails creates thumbnails for every portfolio image missing
// one, or for all of them when force is set. Per-image failures are counted
// and logged.
func (s *ThumbnailService) BulkGenerateThumbnails(ctx context.Context, force bool) (int, int, error) {
	index, err := DiscoverPortfolio(ctx, s.store)
	if err != nil {
		return 0, 0, err
	}

	processed, failed := 0, 0
	for _, name := range index.Candidates {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if _, exists := index.Thumbnails[name]; exists && !force {
			continue
		}
		if err := s.GenerateThumbnail(ctx, name, nil); err != nil {
			s.logger.Warn("thumbnail generation failed", zap.String("image", name), zap.Error(err))
			failed++
			continue
		}
		s.logger.Info("thumbnail generated", zap.String("image", name), zap.String("thumbnail", thumbnailName(name)))
		processed++
	}
	return processed, failed, nil
}

func writeJPEG(w io.WriteCloser, img image.Image) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 85}); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

var errSolidColor = errors.New("thumbnail appears to be a solid color")

// validateThumbnail rejects images whose sampled pixels are (almost) all the
// same colour, which is what a broken decode usually produces.
func validateThumbnail(img image.Image) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return fmt.Errorf("thumbnail is empty")
	}

	sampleSize := 10
	stepX := max(width/sampleSize, 1)
	stepY := max(height/sampleSize, 1)

	r1, g1, b1, a1 := img.At(bounds.Min.X, bounds.Min.Y).RGBA()

	differentPixels := 0
	totalSamples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			totalSamples++
			r2, g2, b2, a2 := img.At(x, y).RGBA()
			if channelDiff(r1, r2) || channelDiff(g1, g2) || channelDiff(b1, b2) || channelDiff(a1, a2) {
				differentPixels++
			}
		}
	}

	if float64(differentPixels)/float64(totalSamples) < 0.01 {
		return fmt.Errorf("%w (only %d/%d sampled pixels differ)", errSolidColor, differentPixels, totalSamples)
	}
	return nil
}

func channelDiff(a, b uint32) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d > colorDifferenceThreshold
}
