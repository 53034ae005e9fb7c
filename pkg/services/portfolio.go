package services

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"taste3d/pkg/assets"
)

const (
	portfolioPrefix = "portfolio/"
	thumbnailPrefix = "portfolio/thumbs/"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

func isImage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// thumbnailName maps a portfolio image to its thumbnail asset
func thumbnailName(name string) string {
	base := path.Base(name)
	return thumbnailPrefix + strings.TrimSuffix(base, path.Ext(base)) + ".jpg"
}

// PortfolioIndex is the result of scanning the portfolio folder
type PortfolioIndex struct {
	// Candidates are the images in discovery (natural) order
	Candidates []string
	// Thumbnails maps a candidate to its generated thumbnail
	Thumbnails map[string]string
}

// DiscoverPortfolio lists portfolio images in natural order and pairs them
// with existing thumbnails.
func DiscoverPortfolio(ctx context.Context, store assets.Store) (PortfolioIndex, error) {
	names, err := store.List(ctx, portfolioPrefix)
	if err != nil {
		return PortfolioIndex{}, fmt.Errorf("failed to list portfolio: %w", err)
	}

	thumbs := map[string]bool{}
	var candidates []string
	for _, name := range names {
		if !isImage(name) {
			continue
		}
		if strings.HasPrefix(name, thumbnailPrefix) {
			thumbs[name] = true
			continue
		}
		// only direct children of the portfolio folder
		if path.Dir(name) != strings.TrimSuffix(portfolioPrefix, "/") {
			continue
		}
		candidates = append(candidates, name)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return naturalLess(candidates[i], candidates[j])
	})

	index := PortfolioIndex{Candidates: candidates, Thumbnails: map[string]string{}}
	for _, c := range candidates {
		if t := thumbnailName(c); thumbs[t] {
			index.Thumbnails[c] = t
		}
	}
	return index, nil
}

// NewPortfolioResolver resolves candidates to store URLs and preloads the
// image shown in the grid (the thumbnail when one exists).
func NewPortfolioResolver(store assets.Store, preloader *Preloader, thumbnails map[string]string) ResolveFunc {
	return func(ctx context.Context, name string) (Resolution, error) {
		uri, err := store.URL(ctx, name)
		if err != nil {
			return Resolution{}, &LoadError{URI: name, Err: err}
		}

		res := Resolution{URI: uri}
		display := uri
		if thumb, ok := thumbnails[name]; ok {
			if thumbURI, err := store.URL(ctx, thumb); err == nil {
				res.Thumbnail = thumbURI
				display = thumbURI
			}
		}

		if err := preloader.PreloadOne(ctx, display); err != nil {
			return Resolution{}, err
		}
		return res, nil
	}
}
