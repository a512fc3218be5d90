package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stagehand-music/stagehand/internal/api"
	"github.com/stagehand-music/stagehand/internal/blob"
	"github.com/stagehand-music/stagehand/internal/config"
	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage/memory"
)

// testServer creates a test server with in-memory storage
type testServer struct {
	handler      http.Handler
	store        *memory.Store
	blobs        *blob.MemoryStore
	bootstrapKey string
}

type serverOption func(*config.Config, *api.Deps)

func withoutBlobs() serverOption {
	return func(_ *config.Config, d *api.Deps) { d.Blobs = nil }
}

func withRateLimit(perSecond float64, burst int) serverOption {
	return func(c *config.Config, _ *api.Deps) {
		c.Server.PublicRateLimit = perSecond
		c.Server.PublicRateBurst = burst
	}
}

func newTestServer(opts ...serverOption) *testServer {
	store := memory.New()
	blobs := blob.NewMemory("https://media.example")
	bootstrapKey := "test-bootstrap-key"

	cfg := &config.Config{
		Server:  config.ServerConfig{PublicOrigin: "https://site.example"},
		Blob:    config.BlobConfig{MaxUploadBytes: 1024},
		Auth:    config.AuthConfig{BootstrapAPIKey: bootstrapKey},
		Metrics: config.MetricsConfig{Enabled: true},
	}
	deps := api.Deps{Store: store, Blobs: blobs, Config: cfg}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	return &testServer{
		handler:      api.NewRouter(deps),
		store:        store,
		blobs:        blobs,
		bootstrapKey: bootstrapKey,
	}
}

func (ts *testServer) request(method, path string, body any, apiKey string, headers ...string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[domain.StandardErrorResponse](t, rr).Error.Code
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("GET", "/health", nil, "")
	expectStatus(t, rr, http.StatusOK)

	resp := decode[map[string]string](t, rr)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	ts.request("GET", "/api/v1/bands", nil, "")

	rr := ts.request("GET", "/metrics", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `stagehand_http_requests_total{method="GET",route="/api/v1/bands",status="200"}`) {
		t.Errorf("Expected request counter for /api/v1/bands in metrics output")
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer()

	// Request without auth header
	rr := ts.request("POST", "/api/v1/bands", domain.CreateBandRequest{Name: "X"}, "")
	expectStatus(t, rr, http.StatusUnauthorized)
	if code := errorCode(t, rr); code != domain.ErrCodeUnauthorized {
		t.Errorf("Expected code %s, got %s", domain.ErrCodeUnauthorized, code)
	}

	// Request with invalid auth header format
	rr = ts.request("POST", "/api/v1/bands", nil, "", "Authorization", "Basic invalid")
	expectStatus(t, rr, http.StatusUnauthorized)

	// Request with invalid API key
	rr = ts.request("GET", "/api/v1/keys", nil, "invalid-key")
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestPublicReadsNeedNoAuth(t *testing.T) {
	ts := newTestServer()

	for _, path := range []string{"/api/v1/bands", "/api/v1/venues", "/api/v1/events", "/api/v1/blog", "/api/v1/racks", "/api/v1/equipment"} {
		rr := ts.request("GET", path, nil, "")
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rr.Code)
		}
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	ts := newTestServer()

	// Bootstrap key works while no keys exist
	rr := ts.request("GET", "/api/v1/me", nil, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusOK)
	if p := decode[domain.Principal](t, rr); p.Kind != "bootstrap" {
		t.Errorf("Expected bootstrap principal, got %q", p.Kind)
	}

	rr = ts.request("POST", "/api/v1/keys", domain.CreateAPIKeyRequest{Name: "Test Key"}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusCreated)
	created := decode[domain.CreateAPIKeyResponse](t, rr)
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Expected Cache-Control no-store on key creation, got %q", got)
	}
	if !strings.HasPrefix(created.Key, "sh_") {
		t.Errorf("Expected key to start with sh_, got %q", created.Key)
	}
	if !strings.HasPrefix(created.Key, created.KeyPrefix) {
		t.Errorf("Expected prefix %q to prefix key", created.KeyPrefix)
	}

	// Bootstrap key stops working once a key exists
	rr = ts.request("GET", "/api/v1/keys", nil, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = ts.request("GET", "/api/v1/keys", nil, created.Key)
	expectStatus(t, rr, http.StatusOK)
	keys := decode[[]domain.APIKey](t, rr)
	if len(keys) != 1 || keys[0].ID != created.ID {
		t.Fatalf("Expected the created key to be listed, got %+v", keys)
	}
	if strings.Contains(rr.Body.String(), created.Key) {
		t.Error("Listing must not reveal the key")
	}

	rr = ts.request("POST", "/api/v1/keys", domain.CreateAPIKeyRequest{}, created.Key)
	expectStatus(t, rr, http.StatusBadRequest)
	if code := errorCode(t, rr); code != domain.ErrCodeValidationError {
		t.Errorf("Expected %s, got %s", domain.ErrCodeValidationError, code)
	}

	rr = ts.request("DELETE", "/api/v1/keys/"+created.ID, nil, created.Key)
	expectStatus(t, rr, http.StatusNoContent)

	rr = ts.request("GET", "/api/v1/keys", nil, created.Key)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestBandCRUD(t *testing.T) {
	ts := newTestServer()
	key := ts.bootstrapKey

	inactive := false
	rr := ts.request("POST", "/api/v1/bands", map[string]any{
		"name": "The Rackmounts", "location": "Chicago, IL",
		"start_date": "2015-03-01T00:00:00Z", "end_date": "2019-06-30T00:00:00Z",
		"is_active": inactive,
	}, key)
	expectStatus(t, rr, http.StatusCreated)
	old := decode[domain.Band](t, rr)

	rr = ts.request("POST", "/api/v1/bands", domain.CreateBandRequest{Name: "Current Band"}, key)
	expectStatus(t, rr, http.StatusCreated)
	current := decode[domain.Band](t, rr)
	if !current.IsActive {
		t.Error("Expected new bands to default to active")
	}

	rr = ts.request("GET", "/api/v1/bands?active=true", nil, "")
	expectStatus(t, rr, http.StatusOK)
	active := decode[[]domain.Band](t, rr)
	if len(active) != 1 || active[0].ID != current.ID {
		t.Errorf("Expected only the active band, got %+v", active)
	}

	// End before start is rejected
	rr = ts.request("PUT", "/api/v1/bands/"+old.ID, map[string]any{"end_date": "2010-01-01T00:00:00Z"}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	name := "The Rack Mounts"
	rr = ts.request("PUT", "/api/v1/bands/"+old.ID, domain.UpdateBandRequest{Name: &name}, key)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[domain.Band](t, rr); got.Name != name || got.Location != "Chicago, IL" {
		t.Errorf("Expected partial update, got %+v", got)
	}

	rr = ts.request("DELETE", "/api/v1/bands/"+old.ID, nil, key)
	expectStatus(t, rr, http.StatusNoContent)

	rr = ts.request("GET", "/api/v1/bands/"+old.ID, nil, "")
	expectStatus(t, rr, http.StatusNotFound)
	if code := errorCode(t, rr); code != domain.ErrCodeResourceNotFound {
		t.Errorf("Expected %s, got %s", domain.ErrCodeResourceNotFound, code)
	}
}

func TestEventsAndReferences(t *testing.T) {
	ts := newTestServer()
	key := ts.bootstrapKey

	rr := ts.request("POST", "/api/v1/venues", domain.CreateVenueRequest{
		Name: "The Hall", City: "Austin", State: "TX", GoogleMapsLink: "https://maps.example/hall",
	}, key)
	expectStatus(t, rr, http.StatusCreated)
	venue := decode[domain.Venue](t, rr)

	rr = ts.request("POST", "/api/v1/venues", domain.CreateVenueRequest{Name: "Bad", GoogleMapsLink: "ftp://nope"}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	missing := "no-such-venue"
	rr = ts.request("POST", "/api/v1/events", map[string]any{
		"name": "Ghost Show", "date": "2031-01-01T20:00:00Z", "venue_id": missing,
	}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	for i, date := range []string{"2001-05-01T20:00:00Z", "2099-05-01T20:00:00Z", "2098-05-01T20:00:00Z"} {
		rr = ts.request("POST", "/api/v1/events", map[string]any{
			"name": fmt.Sprintf("Show %d", i), "date": date, "venue_id": venue.ID,
		}, key)
		expectStatus(t, rr, http.StatusCreated)
	}

	rr = ts.request("GET", "/api/v1/events?venue_id="+venue.ID, nil, "")
	expectStatus(t, rr, http.StatusOK)
	all := decode[[]domain.Event](t, rr)
	if len(all) != 3 || all[0].Name != "Show 1" {
		t.Errorf("Expected three events newest first, got %+v", all)
	}

	rr = ts.request("GET", "/api/v1/events?upcoming=true", nil, "")
	expectStatus(t, rr, http.StatusOK)
	upcoming := decode[[]domain.Event](t, rr)
	if len(upcoming) != 2 || upcoming[0].Name != "Show 2" {
		t.Errorf("Expected two upcoming events soonest first, got %+v", upcoming)
	}

	// Deleting the venue keeps the events
	rr = ts.request("DELETE", "/api/v1/venues/"+venue.ID, nil, key)
	expectStatus(t, rr, http.StatusNoContent)
	rr = ts.request("GET", "/api/v1/events", nil, "")
	if got := decode[[]domain.Event](t, rr); len(got) != 3 || got[0].VenueID != nil {
		t.Errorf("Expected events to survive without a venue, got %+v", got)
	}
}

func TestBlogPosts(t *testing.T) {
	ts := newTestServer()
	key := ts.bootstrapKey

	rr := ts.request("POST", "/api/v1/blog", domain.CreateBlogPostRequest{Title: "New rig", Body: "# Hello"}, key)
	expectStatus(t, rr, http.StatusCreated)
	post := decode[domain.BlogPost](t, rr)
	if post.UpdatedAt != nil {
		t.Error("Expected a fresh post to have no updated_at")
	}

	body := "# Hello again"
	rr = ts.request("PUT", "/api/v1/blog/"+post.ID, domain.UpdateBlogPostRequest{Body: &body}, key)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[domain.BlogPost](t, rr); got.Body != body || got.UpdatedAt == nil {
		t.Errorf("Expected updated body and timestamp, got %+v", got)
	}
}

type rackFixture struct {
	rack domain.Rack
	ids  map[string]string
}

func (ts *testServer) mountRack(t *testing.T, capacity int, items ...domain.CreateEquipmentRequest) rackFixture {
	t.Helper()
	rr := ts.request("POST", "/api/v1/racks", domain.CreateRackRequest{Name: "Main", Capacity: capacity}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusCreated)
	fx := rackFixture{rack: decode[domain.Rack](t, rr), ids: map[string]string{}}

	for _, it := range items {
		rr = ts.request("POST", "/api/v1/racks/"+fx.rack.ID+"/equipment", it, ts.bootstrapKey)
		expectStatus(t, rr, http.StatusCreated)
		fx.ids[it.Model] = decode[domain.Equipment](t, rr).ID
	}
	return fx
}

func (ts *testServer) positions(t *testing.T, fx rackFixture) map[string]int {
	t.Helper()
	rr := ts.request("GET", "/api/v1/racks/"+fx.rack.ID+"/equipment", nil, "")
	expectStatus(t, rr, http.StatusOK)
	out := map[string]int{}
	for _, eq := range decode[[]domain.Equipment](t, rr) {
		out[eq.Model] = eq.Position
	}
	return out
}

func moveTo(position int) domain.MoveEquipmentRequest {
	return domain.MoveEquipmentRequest{Position: &position}
}

func TestMoveEquipment(t *testing.T) {
	ts := newTestServer()
	fx := ts.mountRack(t, 10,
		domain.CreateEquipmentRequest{Model: "A", Height: 2, Position: 1},
		domain.CreateEquipmentRequest{Model: "B", Height: 1, Position: 3},
		domain.CreateEquipmentRequest{Model: "C", Height: 3, Position: 4},
	)
	rackPath := "/api/v1/racks/" + fx.rack.ID

	rr := ts.request("GET", rackPath, nil, "")
	expectStatus(t, rr, http.StatusOK)
	etag := rr.Header().Get("ETag")
	if want := fmt.Sprintf(`"rack-%s-4"`, fx.rack.ID); etag != want {
		t.Fatalf("Expected ETag %s, got %s", want, etag)
	}

	movePath := rackPath + "/equipment/" + fx.ids["A"] + "/move"
	rr = ts.request("POST", movePath, moveTo(3), ts.bootstrapKey, "If-Match", etag)
	expectStatus(t, rr, http.StatusOK)
	resp := decode[domain.MoveEquipmentResponse](t, rr)
	if resp.Unchanged || len(resp.Updates) != 3 || resp.LayoutVersion != 5 {
		t.Errorf("Unexpected move response %+v", resp)
	}
	if got := rr.Header().Get("ETag"); got != fmt.Sprintf(`"rack-%s-5"`, fx.rack.ID) {
		t.Errorf("Expected refreshed ETag, got %s", got)
	}

	want := map[string]int{"A": 3, "B": 5, "C": 6}
	got := ts.positions(t, fx)
	for model, pos := range want {
		if got[model] != pos {
			t.Errorf("Expected %s at %d, got %d", model, pos, got[model])
		}
	}

	// Stale ETag
	rr = ts.request("POST", movePath, moveTo(1), ts.bootstrapKey, "If-Match", etag)
	expectStatus(t, rr, http.StatusPreconditionFailed)
	if code := errorCode(t, rr); code != domain.ErrCodePreconditionFailed {
		t.Errorf("Expected %s, got %s", domain.ErrCodePreconditionFailed, code)
	}

	// Same position is a no-op
	rr = ts.request("POST", movePath, moveTo(3), ts.bootstrapKey)
	expectStatus(t, rr, http.StatusOK)
	if resp := decode[domain.MoveEquipmentResponse](t, rr); !resp.Unchanged || resp.LayoutVersion != 5 {
		t.Errorf("Expected unchanged move at version 5, got %+v", resp)
	}

	// Unknown equipment
	rr = ts.request("POST", rackPath+"/equipment/nope/move", moveTo(1), ts.bootstrapKey)
	expectStatus(t, rr, http.StatusNotFound)
	if code := errorCode(t, rr); code != domain.ErrCodeUnknownEquipment {
		t.Errorf("Expected %s, got %s", domain.ErrCodeUnknownEquipment, code)
	}

	// Moves need auth
	rr = ts.request("POST", movePath, moveTo(1), "")
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestMoveEquipment_RequiresPosition(t *testing.T) {
	ts := newTestServer()
	fx := ts.mountRack(t, 10,
		domain.CreateEquipmentRequest{Model: "A", Height: 2, Position: 1},
		domain.CreateEquipmentRequest{Model: "B", Height: 1, Position: 5},
	)
	movePath := "/api/v1/racks/" + fx.rack.ID + "/equipment/" + fx.ids["B"] + "/move"

	rr := ts.request("POST", movePath, map[string]any{}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusBadRequest)
	errResp := decode[domain.StandardErrorResponse](t, rr)
	if errResp.Error.Code != domain.ErrCodeValidationError || errResp.Error.Field != "ru_position" {
		t.Errorf("Expected validation error on ru_position, got %+v", errResp.Error)
	}
	if got := ts.positions(t, fx); got["A"] != 1 || got["B"] != 5 {
		t.Errorf("Expected positions unchanged, got %v", got)
	}

	// An explicit zero is a real request and clamps to the top.
	rr = ts.request("POST", movePath, moveTo(0), ts.bootstrapKey)
	expectStatus(t, rr, http.StatusOK)
	if got := ts.positions(t, fx); got["A"] != 2 || got["B"] != 1 {
		t.Errorf("Expected B clamped to the top pushing A down, got %v", got)
	}
}

func TestMoveEquipment_InsufficientSpace(t *testing.T) {
	ts := newTestServer()
	fx := ts.mountRack(t, 2,
		domain.CreateEquipmentRequest{Model: "A", Height: 1, Position: 1},
		domain.CreateEquipmentRequest{Model: "B", Height: 1, Position: 2},
	)

	rr := ts.request("POST", "/api/v1/racks/"+fx.rack.ID+"/equipment/"+fx.ids["A"]+"/move",
		moveTo(2), ts.bootstrapKey)
	expectStatus(t, rr, http.StatusConflict)
	if code := errorCode(t, rr); code != domain.ErrCodeInsufficientSpace {
		t.Errorf("Expected %s, got %s", domain.ErrCodeInsufficientSpace, code)
	}

	if got := ts.positions(t, fx); got["A"] != 1 || got["B"] != 2 {
		t.Errorf("Expected positions unchanged, got %v", got)
	}
}

func TestEquipmentPlacementRules(t *testing.T) {
	ts := newTestServer()
	fx := ts.mountRack(t, 4, domain.CreateEquipmentRequest{Model: "Amp", Height: 2, Position: 1})
	eqPath := "/api/v1/racks/" + fx.rack.ID + "/equipment"

	rr := ts.request("POST", eqPath, domain.CreateEquipmentRequest{Model: "Overlap", Height: 1, Position: 2}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusConflict)

	rr = ts.request("POST", eqPath, domain.CreateEquipmentRequest{Model: "Rear", Height: 2, Position: 1, Backmounted: true}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.request("POST", eqPath, domain.CreateEquipmentRequest{Model: "TooLow", Height: 2, Position: 4}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.request("POST", eqPath, domain.CreateEquipmentRequest{Model: "NoHeight"}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusBadRequest)
	if code := errorCode(t, rr); code != domain.ErrCodeValidationError {
		t.Errorf("Expected %s, got %s", domain.ErrCodeValidationError, code)
	}

	// Shrinking the rack below mounted equipment fails
	capacity := 1
	rr = ts.request("PUT", "/api/v1/racks/"+fx.rack.ID, domain.UpdateRackRequest{Capacity: &capacity}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusConflict)

	// Equipment is not reachable through another rack
	other := ts.mountRack(t, 4)
	rr = ts.request("GET", "/api/v1/racks/"+other.rack.ID+"/equipment/"+fx.ids["Amp"], nil, "")
	expectStatus(t, rr, http.StatusNotFound)
}

func TestRackSummaryAndDelete(t *testing.T) {
	ts := newTestServer()
	fx := ts.mountRack(t, 12,
		domain.CreateEquipmentRequest{Model: "Amp", Height: 2, Position: 1},
		domain.CreateEquipmentRequest{Model: "PDU", Height: 1, Position: 1, Backmounted: true},
	)

	rr := ts.request("GET", "/api/v1/racks/"+fx.rack.ID+"/summary", nil, "")
	expectStatus(t, rr, http.StatusOK)
	summary := decode[domain.RackSummary](t, rr)
	if summary.EquipmentCount != 2 || summary.UsedFront != 2 || summary.UsedBack != 1 || summary.HeightInches != 21 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	rr = ts.request("DELETE", "/api/v1/racks/"+fx.rack.ID, nil, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusNoContent)

	rr = ts.request("GET", "/api/v1/equipment", nil, "")
	expectStatus(t, rr, http.StatusOK)
	if all := decode[[]domain.Equipment](t, rr); len(all) != 0 {
		t.Errorf("Expected equipment to be deleted with the rack, got %d", len(all))
	}
}

func TestUpload(t *testing.T) {
	ts := newTestServer()
	key := ts.bootstrapKey
	data := base64.StdEncoding.EncodeToString([]byte("PNGDATA"))

	req := domain.UploadRequest{FileName: "racks/main.png", FileType: "image/png", FileData: data}
	rr := ts.request("POST", "/api/v1/upload", req, key)
	expectStatus(t, rr, http.StatusOK)
	resp := decode[domain.UploadResponse](t, rr)
	if resp.URL != "https://media.example/racks/main.png" || resp.Name != "racks/main.png" {
		t.Errorf("Unexpected upload response %+v", resp)
	}
	obj, ok := ts.blobs.Get("racks/main.png")
	if !ok || string(obj.Data) != "PNGDATA" || obj.ContentType != "image/png" {
		t.Errorf("Unexpected stored object %+v", obj)
	}

	rr = ts.request("POST", "/api/v1/upload", req, key)
	expectStatus(t, rr, http.StatusConflict)

	rr = ts.request("POST", "/api/v1/upload?overwrite=true", req, key)
	expectStatus(t, rr, http.StatusOK)

	// Data URLs supply the type
	rr = ts.request("POST", "/api/v1/upload", domain.UploadRequest{
		FileName: "logo.svg", FileData: "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte("<svg/>")),
	}, key)
	expectStatus(t, rr, http.StatusOK)
	if obj, _ := ts.blobs.Get("logo.svg"); obj.ContentType != "image/svg+xml" {
		t.Errorf("Expected data URL content type, got %q", obj.ContentType)
	}

	rr = ts.request("POST", "/api/v1/upload", domain.UploadRequest{FileName: "x.bin", FileData: "!!!"}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.request("POST", "/api/v1/upload", domain.UploadRequest{FileName: "../escape.png", FileData: data}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.request("POST", "/api/v1/upload", domain.UploadRequest{FileName: "x.png"}, key)
	expectStatus(t, rr, http.StatusBadRequest)

	big := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 2048))
	rr = ts.request("POST", "/api/v1/upload", domain.UploadRequest{FileName: "big.bin", FileData: big}, key)
	expectStatus(t, rr, http.StatusRequestEntityTooLarge)
}

func TestUploadWithoutBlobStorage(t *testing.T) {
	ts := newTestServer(withoutBlobs())

	rr := ts.request("POST", "/api/v1/upload", domain.UploadRequest{FileName: "a.png", FileData: "AAAA"}, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if code := errorCode(t, rr); code != domain.ErrCodeBlobUnavailable {
		t.Errorf("Expected %s, got %s", domain.ErrCodeBlobUnavailable, code)
	}
}

func TestPublicRateLimit(t *testing.T) {
	ts := newTestServer(withRateLimit(0.001, 2))

	for i := 0; i < 2; i++ {
		rr := ts.request("GET", "/api/v1/racks", nil, "")
		expectStatus(t, rr, http.StatusOK)
	}
	rr := ts.request("GET", "/api/v1/racks", nil, "")
	expectStatus(t, rr, http.StatusTooManyRequests)

	// Admin routes are not limited
	rr = ts.request("GET", "/api/v1/me", nil, ts.bootstrapKey)
	expectStatus(t, rr, http.StatusOK)
}

func TestCORS(t *testing.T) {
	ts := newTestServer()

	rr := ts.request("OPTIONS", "/api/v1/racks", nil, "",
		"Origin", "https://site.example", "Access-Control-Request-Method", "POST")
	if rr.Code >= 300 {
		t.Fatalf("Expected preflight success, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://site.example" {
		t.Errorf("Expected allowed origin, got %q", got)
	}

	rr = ts.request("OPTIONS", "/api/v1/racks", nil, "",
		"Origin", "https://evil.example", "Access-Control-Request-Method", "POST")
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Expected no preflight grant for a foreign origin, got %q", got)
	}

	rr = ts.request("GET", "/api/v1/racks", nil, "", "Origin", "https://evil.example")
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS header for a foreign origin, got %q", got)
	}
}
