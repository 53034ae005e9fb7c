package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taste3d/pkg/assets"
	"taste3d/pkg/config"
	"taste3d/pkg/content"
	"taste3d/pkg/models"
	"taste3d/pkg/services"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
	desktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.Set(i%4, i/4, color.RGBA{R: uint8(i * 16), G: 80, B: 120, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testGLB(t *testing.T) []byte {
	t.Helper()
	js := []byte(`{"asset":{"version":"2.0"},"meshes":[{"primitives":[]}]}`)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint32{0x46546C67, 2, uint32(12 + 8 + len(js))}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(js)), 0x4E4F534A}))
	buf.Write(js)
	return buf.Bytes()
}

func writeAsset(t *testing.T, root, name string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, data, 0644))
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	relay    *httptest.Server
	showcase *services.Showcase
	root     string
}

func newTestEnv(t *testing.T, publicKey string) *testEnv {
	t.Helper()

	root := t.TempDir()
	photo := testPNG(t)
	writeAsset(t, root, "img/carbonara.jpg", photo)
	writeAsset(t, root, "img/sofran.jpg", photo)
	writeAsset(t, root, "3d/carbonara.glb", testGLB(t))
	writeAsset(t, root, "portfolio/dish1.jpg", photo)
	writeAsset(t, root, "portfolio/dish2.jpg", photo)

	site := &content.Site{
		Items: []models.MediaItem{
			{ID: "carbonara", Label: "Carbonara", StaticAsset: "/assets/img/carbonara.jpg", InteractiveAsset: "/assets/3d/carbonara.glb", Viewer: models.ViewerSettings{Scale: 8}},
			{ID: "sofran", Label: "Sofran", StaticAsset: "/assets/img/sofran.jpg", InteractiveAsset: "/assets/3d/missing.glb", Viewer: models.ViewerSettings{Scale: 16, Target: [3]float64{0, -1.5, 2}}},
		},
		AR: models.ARAsset{GLB: "/assets/ar/mozzarella.glb", USDZ: "/assets/ar/mozzarella.usdz"},
	}

	cfg := &config.Config{
		ViewsDir:        filepath.Join("..", "..", "views"),
		SiteOrigin:      "https://taste3d.ro",
		EmailServiceID:  "service_taste3d",
		EmailTemplateID: "template_contact",
		EmailPublicKey:  publicKey,
		ContactEmail:    "contact.taste3d@gmail.com",
		SessionTTL:      time.Minute,
		AdminKey:        "k3y",
	}

	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	t.Cleanup(relay.Close)

	store := assets.NewLocalStore(root, "/assets")
	fetcher := assets.NewStoreFetcher(store, store.URLPrefix(), nil)
	preloader := services.NewPreloader(fetcher, nil, nil)
	scenes := services.NewSceneLoader(fetcher, nil)
	showcase := services.NewShowcase(site.Items, scenes, preloader, cfg.SessionTTL, nil)
	t.Cleanup(showcase.Close)

	index, err := services.DiscoverPortfolio(context.Background(), store)
	require.NoError(t, err)
	gallery := services.NewGallery(index.Candidates, services.NewPortfolioResolver(store, preloader, index.Thumbnails), services.GalleryOptions{BatchSize: 1}, nil)
	gallery.LoadInitial(context.Background())

	contact := services.NewContactService(services.NewEmailJSRelay(relay.URL, relay.Client()), services.ContactSettings{
		ServiceID:  cfg.EmailServiceID,
		TemplateID: cfg.EmailTemplateID,
		PublicKey:  cfg.EmailPublicKey,
		Recipient:  cfg.ContactEmail,
	}, nil)

	srv := NewServer(Deps{
		Config:     cfg,
		Site:       site,
		Store:      store,
		Showcase:   showcase,
		Scenes:     scenes,
		Preloader:  preloader,
		Gallery:    gallery,
		Contact:    contact,
		Thumbnails: services.NewThumbnailService(store, 64, nil),
	})
	server := httptest.NewServer(srv.Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: server, client: client, relay: relay, showcase: showcase, root: root}
}

func (e *testEnv) do(t *testing.T, method, path, ua string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestToggleRevealsViewer(t *testing.T) {
	env := newTestEnv(t, "pk")

	resp := env.do(t, http.MethodGet, "/showcase/carbonara/viewer", "", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode, "photo state has no viewer")
	require.Equal(t, 1, env.showcase.Sessions())

	resp = env.do(t, http.MethodPost, "/showcase/carbonara/toggle", "", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/#item-carbonara", resp.Header.Get("Location"))

	resp = env.do(t, http.MethodGet, "/showcase/carbonara/viewer", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state services.ViewerState
	decode(t, resp, &state)
	require.Equal(t, "carbonara", state.ItemID)
	require.Equal(t, 1, state.Meshes)
	require.Equal(t, 8.0, state.Camera.Radius)
	require.Equal(t, 1, env.showcase.Sessions(), "the cookie keeps the same session")

	resp = env.do(t, http.MethodGet, "/showcase/carbonara/scene", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "model/gltf-binary", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, testGLB(t), data)

	resp = env.do(t, http.MethodPost, "/showcase/carbonara/orbit", "", strings.NewReader(`{"zoom": 10}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &state)
	require.Equal(t, 12.0, state.Camera.Radius, "zoom is clamped")

	env.do(t, http.MethodPost, "/showcase/carbonara/toggle", "", nil, "")
	resp = env.do(t, http.MethodGet, "/showcase/carbonara/viewer", "", nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	env.do(t, http.MethodPost, "/showcase/carbonara/toggle", "", nil, "")
	resp = env.do(t, http.MethodGet, "/showcase/carbonara/viewer", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &state)
	require.Equal(t, 8.0, state.Camera.Radius, "a remount starts with a fresh camera")
}

func TestViewerLoadFailure(t *testing.T) {
	env := newTestEnv(t, "pk")

	env.do(t, http.MethodPost, "/showcase/sofran/toggle", "", nil, "")
	resp := env.do(t, http.MethodGet, "/showcase/sofran/viewer", "", nil, "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/showcase/unknown/toggle", "", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownItemCreatesNoSession(t *testing.T) {
	env := newTestEnv(t, "pk")

	for _, path := range []string{"/showcase/bogus/viewer", "/showcase/bogus/scene"} {
		resp := env.do(t, http.MethodGet, path, "", nil, "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		require.Empty(t, resp.Header.Values("Set-Cookie"), path)
	}
	resp := env.do(t, http.MethodPost, "/showcase/bogus/toggle", "", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Empty(t, resp.Header.Values("Set-Cookie"))
	require.Zero(t, env.showcase.Sessions())
}

func TestToggleRendersCellPartialForHtmx(t *testing.T) {
	env := newTestEnv(t, "pk")

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/showcase/carbonara/toggle", nil)
	require.NoError(t, err)
	req.Header.Set("HX-Request", "true")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)
	require.Equal(t, 1, strings.Count(html, `id="item-carbonara"`))
	require.Contains(t, html, "/showcase/carbonara/scene")
	require.NotContains(t, html, "<html", "only the cell is returned")
}

func TestCapabilityAndARRedirect(t *testing.T) {
	env := newTestEnv(t, "pk")

	resp := env.do(t, http.MethodGet, "/api/capability", iphoneUA, nil, "")
	var got capabilityResponse
	decode(t, resp, &got)
	require.Equal(t, "ios", got.Platform)
	require.True(t, got.SupportsAR)
	require.Equal(t, "ar", got.Launch.Rel)

	resp = env.do(t, http.MethodGet, "/api/capability", desktopUA, nil, "")
	got = capabilityResponse{}
	decode(t, resp, &got)
	require.False(t, got.Mobile)
	require.False(t, got.Launch.Enabled)
	require.NotEmpty(t, got.Launch.Hint)

	resp = env.do(t, http.MethodGet, "/ar", androidUA, nil, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"),
		"intent://arvr.google.com/scene-viewer/1.0?file=https://taste3d.ro/assets/ar/mozzarella.glb#Intent;"))

	resp = env.do(t, http.MethodGet, "/ar", desktopUA, nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/#ar", resp.Header.Get("Location"))
}

func TestContactJSON(t *testing.T) {
	env := newTestEnv(t, "pk")

	body := `{"name":"Ion","email":"ion@example.ro","phone":"","restaurant":"Bistro <b>Vechi</b>","message":"Salut"}`
	resp := env.do(t, http.MethodPost, "/contact", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got contactResponse
	decode(t, resp, &got)
	require.True(t, got.Sent)

	resp = env.do(t, http.MethodPost, "/contact", "", strings.NewReader(`{"name":"Ion"}`), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	got = contactResponse{}
	decode(t, resp, &got)
	require.Equal(t, []string{"email", "restaurant", "message"}, got.Missing)
}

func TestContactFallbackWithoutKey(t *testing.T) {
	env := newTestEnv(t, "")

	body := `{"name":"Ion","email":"ion@example.ro","phone":"0712","restaurant":"Bistro & Co","message":"Salut"}`
	resp := env.do(t, http.MethodPost, "/contact", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var got contactResponse
	decode(t, resp, &got)
	require.False(t, got.Sent)
	require.True(t, strings.HasPrefix(got.Mailto, "mailto:contact.taste3d@gmail.com?subject="))
	require.Contains(t, got.Body, "🏪 Restaurant: Bistro & Co")
	require.Contains(t, got.Body, "📞 Telefon: 0712")
}

func TestPortfolioFeedAndHealth(t *testing.T) {
	env := newTestEnv(t, "pk")

	resp := env.do(t, http.MethodGet, "/portfolio/feed", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page models.Portfolio
	decode(t, resp, &page)
	require.Len(t, page.Images, 1)
	require.Equal(t, "portfolio/dish1.jpg", page.Images[0].Path)
	require.Equal(t, 1, page.Pending)
	require.True(t, page.Loading)

	resp = env.do(t, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	decode(t, resp, &health)
	require.Equal(t, "ok", health["status"])

	resp = env.do(t, http.MethodGet, "/assets/img/carbonara.jpg", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/assets/img/none.jpg", "", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminBulkThumbnails(t *testing.T) {
	env := newTestEnv(t, "pk")

	resp := env.do(t, http.MethodPost, "/k3y/admin/thumbnails/bulk", "", strings.NewReader(`{"force": false}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Processed int `json:"processed"`
		Errors    int `json:"errors"`
	}
	decode(t, resp, &got)
	require.Equal(t, 2, got.Processed)
	require.Zero(t, got.Errors)
	require.FileExists(t, filepath.Join(env.root, "portfolio", "thumbs", "dish1.jpg"))

	resp = env.do(t, http.MethodPost, "/k3y/admin/thumbnails", "", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/wrong/admin/thumbnails/bulk", "", strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
