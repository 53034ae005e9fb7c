package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"taste3d/pkg/assets"
	"taste3d/pkg/logging"
	"taste3d/pkg/models"
)

// GLB container constants (glTF 2.0 binary format)
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"
)

var (
	errGLBTooSmall       = errors.New("GLB file too small")
	errInvalidGLBMagic   = errors.New("invalid GLB magic number")
	errInvalidGLBVersion = errors.New("invalid GLB version: must be 2")
	errInvalidGLBLength  = errors.New("GLB length does not match data")
	errMissingJSONChunk  = errors.New("GLB file missing JSON chunk")
	errNoMeshes          = errors.New("GLB scene has no meshes")
)

// ErrSceneClosed is returned by a Scene after it was released
var ErrSceneClosed = errors.New("scene already released")

const (
	// sceneLoadTimeout bounds a shared model fetch, which outlives any single viewer
	sceneLoadTimeout = 60 * time.Second

	defaultOrbitMaxPolar  = 55 * math.Pi / 180
	defaultCameraDistance = 8.0
)

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type glbChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

// SceneAsset is a validated GLB model shared by every viewer of it
type SceneAsset struct {
	URI       string
	Data      []byte
	Generator string
	Nodes     int
	Meshes    int
	HasBinary bool
}

// ParseGLB validates a GLB container and summarizes its JSON chunk
func ParseGLB(uri string, data []byte) (*SceneAsset, error) {
	if len(data) < 20 {
		return nil, errGLBTooSmall
	}

	r := bytes.NewReader(data)
	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, errInvalidGLBVersion
	}
	if int(header.Length) > len(data) {
		return nil, errInvalidGLBLength
	}

	var chunk glbChunkHeader
	if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
		return nil, fmt.Errorf("failed to read GLB chunk: %w", err)
	}
	if chunk.ChunkType != glbChunkJSON {
		return nil, errMissingJSONChunk
	}
	start := 20
	end := start + int(chunk.ChunkLength)
	if end > int(header.Length) {
		return nil, errInvalidGLBLength
	}

	var doc struct {
		Asset struct {
			Version   string `json:"version"`
			Generator string `json:"generator"`
		} `json:"asset"`
		Nodes  []json.RawMessage `json:"nodes"`
		Meshes []json.RawMessage `json:"meshes"`
	}
	if err := json.Unmarshal(bytes.TrimRight(data[start:end], " \x00"), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode GLB JSON chunk: %w", err)
	}
	if len(doc.Meshes) == 0 {
		return nil, errNoMeshes
	}

	asset := &SceneAsset{
		URI:       uri,
		Data:      data[:header.Length],
		Generator: doc.Asset.Generator,
		Nodes:     len(doc.Nodes),
		Meshes:    len(doc.Meshes),
	}

	// optional BIN chunk, padded to 4 bytes
	if next := (end + 3) &^ 3; next+8 <= int(header.Length) {
		if binary.LittleEndian.Uint32(data[next+4:next+8]) == glbChunkBIN {
			asset.HasBinary = true
		}
	}
	return asset, nil
}

// OrbitCamera is the per-viewer camera state; it is never shared between mounts
type OrbitCamera struct {
	Target          [3]float64 `json:"target"`
	Radius          float64    `json:"radius"`
	Azimuth         float64    `json:"azimuth"`
	Polar           float64    `json:"polar"`
	MinRadius       float64    `json:"minRadius"`
	MaxRadius       float64    `json:"maxRadius"`
	MinPolar        float64    `json:"minPolar"`
	MaxPolar        float64    `json:"maxPolar"`
	FOV             float64    `json:"fov"`
	AutoRotate      bool       `json:"autoRotate"`
	AutoRotateSpeed float64    `json:"autoRotateSpeed"`
}

// NewOrbitCamera places the camera 8 units from target, zoom limited to [6, 12]
// and polar angle limited to 55 degrees.
func NewOrbitCamera(target [3]float64) OrbitCamera {
	cam := OrbitCamera{
		Target:          target,
		Radius:          defaultCameraDistance,
		Polar:           math.Pi / 2,
		MinRadius:       6,
		MaxRadius:       12,
		MinPolar:        0,
		MaxPolar:        defaultOrbitMaxPolar,
		FOV:             50,
		AutoRotate:      true,
		AutoRotateSpeed: 0.5,
	}
	cam.clamp()
	return cam
}

// Orbit rotates the camera around its target by the given angles in radians
func (c *OrbitCamera) Orbit(dAzimuth, dPolar float64) {
	c.Azimuth = math.Mod(c.Azimuth+dAzimuth, 2*math.Pi)
	c.Polar += dPolar
	c.clamp()
}

// Zoom moves the camera towards (negative) or away from the target
func (c *OrbitCamera) Zoom(delta float64) {
	c.Radius += delta
	c.clamp()
}

// Position returns the camera position in world space
func (c *OrbitCamera) Position() [3]float64 {
	sinPolar := math.Sin(c.Polar)
	return [3]float64{
		c.Target[0] + c.Radius*sinPolar*math.Sin(c.Azimuth),
		c.Target[1] + c.Radius*math.Cos(c.Polar),
		c.Target[2] + c.Radius*sinPolar*math.Cos(c.Azimuth),
	}
}

func (c *OrbitCamera) clamp() {
	c.Radius = math.Max(c.MinRadius, math.Min(c.MaxRadius, c.Radius))
	c.Polar = math.Max(c.MinPolar, math.Min(c.MaxPolar, c.Polar))
}

// ViewerState is the JSON view of a mounted scene
type ViewerState struct {
	ItemID   string                `json:"itemId"`
	Asset    string                `json:"asset"`
	Meshes   int                   `json:"meshes"`
	Settings models.ViewerSettings `json:"settings"`
	Camera   OrbitCamera           `json:"camera"`
	Position [3]float64            `json:"position"`
}

// Scene is a mounted 3D viewer: a shared asset plus its own camera.
// Close releases it; every method after Close returns ErrSceneClosed.
type Scene struct {
	item    models.MediaItem
	mu      sync.Mutex
	asset   *SceneAsset
	camera  OrbitCamera
	release func()
}

// State returns a copy of the viewer state
func (s *Scene) State() (ViewerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil {
		return ViewerState{}, ErrSceneClosed
	}
	return ViewerState{
		ItemID:   s.item.ID,
		Asset:    s.asset.URI,
		Meshes:   s.asset.Meshes,
		Settings: s.item.Viewer,
		Camera:   s.camera,
		Position: s.camera.Position(),
	}, nil
}

// Orbit moves the camera; see OrbitCamera.Orbit and OrbitCamera.Zoom
func (s *Scene) Orbit(dAzimuth, dPolar, zoom float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil {
		return ErrSceneClosed
	}
	s.camera.Orbit(dAzimuth, dPolar)
	s.camera.Zoom(zoom)
	return nil
}

// WriteTo streams the GLB bytes
func (s *Scene) WriteTo(w io.Writer) (int64, error) {
	s.mu.Lock()
	asset := s.asset
	s.mu.Unlock()
	if asset == nil {
		return 0, ErrSceneClosed
	}
	n, err := w.Write(asset.Data)
	return int64(n), err
}

// Close releases the scene. It is safe to call more than once.
func (s *Scene) Close() error {
	s.mu.Lock()
	if s.asset == nil {
		s.mu.Unlock()
		return nil
	}
	s.asset = nil
	release := s.release
	s.mu.Unlock()

	if release != nil {
		release()
	}
	return nil
}

// SceneLoader loads GLB assets once and mounts fresh scenes over them
type SceneLoader struct {
	fetcher  assets.Fetcher
	loaded   *cache.Cache
	inflight singleflight.Group
	live     atomic.Int64
	logger   *zap.Logger
}

// NewSceneLoader creates a loader reading models through fetcher
func NewSceneLoader(fetcher assets.Fetcher, logger *zap.Logger) *SceneLoader {
	return &SceneLoader{
		fetcher: fetcher,
		loaded:  cache.New(cache.NoExpiration, 0),
		logger:  logging.OrNop(logger),
	}
}

// Load returns the parsed asset for uri, fetching it on first use
func (l *SceneLoader) Load(ctx context.Context, uri string) (*SceneAsset, error) {
	if cached, found := l.loaded.Get(uri); found {
		return cached.(*SceneAsset), nil
	}

	ch := l.inflight.DoChan(uri, func() (any, error) {
		if cached, found := l.loaded.Get(uri); found {
			return cached, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sceneLoadTimeout)
		defer cancel()
		rc, err := l.fetcher.Fetch(fctx, uri)
		if err != nil {
			return nil, &LoadError{URI: uri, Err: err}
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &LoadError{URI: uri, Err: err}
		}
		asset, err := ParseGLB(uri, data)
		if err != nil {
			return nil, &LoadError{URI: uri, Err: err}
		}
		l.loaded.Set(uri, asset, cache.NoExpiration)
		l.logger.Info("scene loaded",
			zap.String("uri", uri),
			zap.Int("meshes", asset.Meshes),
			zap.Int("bytes", len(asset.Data)))
		return asset, nil
	})

	select {
	case <-ctx.Done():
		return nil, &LoadError{URI: uri, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SceneAsset), nil
	}
}

// Mount constructs a fresh scene for item with a new camera
func (l *SceneLoader) Mount(ctx context.Context, item models.MediaItem) (*Scene, error) {
	asset, err := l.Load(ctx, item.InteractiveAsset)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.live.Add(1)
	return &Scene{
		item:    item,
		asset:   asset,
		camera:  NewOrbitCamera(item.Viewer.Target),
		release: func() { l.live.Add(-1) },
	}, nil
}

// Live returns the number of mounted, unreleased scenes
func (l *SceneLoader) Live() int64 {
	return l.live.Load()
}

// Warm waits for delay and then loads every model in the background order
// given. Failures are logged; warming never fails the caller.
func (l *SceneLoader) Warm(ctx context.Context, delay time.Duration, uris []string) {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	for _, uri := range uris {
		if ctx.Err() != nil {
			return
		}
		if _, err := l.Load(ctx, uri); err != nil {
			l.logger.Warn("model warm-up failed", zap.String("uri", uri), zap.Error(err))
		}
	}
}
