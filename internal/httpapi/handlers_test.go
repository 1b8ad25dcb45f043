package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/auth"
	"github.com/SandLosT/Attendant/internal/config"
	"github.com/SandLosT/Attendant/internal/estimation"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/media"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/rbac"
	"github.com/SandLosT/Attendant/internal/reporting"
	"github.com/SandLosT/Attendant/internal/whatsapp"
	"github.com/SandLosT/Attendant/internal/workflow"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testPhone = "5511988887777"

type stubEstimator struct{}

func (stubEstimator) Estimate(ctx context.Context, img estimation.Image) (estimation.Estimate, error) {
	v := 420.0
	return estimation.Estimate{Value: &v, ThresholdPassed: true, ShopCanDo: true}, nil
}

type testAPI struct {
	router *gin.Engine
	engine *workflow.Engine
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mgr, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	ag := agenda.NewService(agenda.NewMemoryStore(), agenda.Config{}, nil)
	quotes := quote.NewService(quote.NewMemoryRepo(), nil)
	engine, err := workflow.NewEngine(workflow.Deps{
		Attendance: attendance.NewService(attendance.NewMemoryRepo(), 0, nil),
		Quotes:     quotes,
		Agenda:     ag,
		Media:      media.NewService(media.NewMemoryRepo(), media.NewMemoryStore(), nil),
		History:    history.NewService(history.NewMemoryRepo()),
		Estimator:  stubEstimator{},
		Sender:     whatsapp.NewMemorySender(),
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	h := Handlers{
		Auth:   mgr,
		Owner:  auth.Owner{Username: "dono", PasswordHash: string(hash), ShopID: "oficina", Role: rbac.RoleOwner},
		Engine:  engine,
		Agenda:  ag,
		Reports: reporting.NewService(quotes, ag, time.UTC),
	}
	r := gin.New()
	h.Register(r.Group("/v1/owner"), auth.RequireAccessToken(mgr))

	api := &testAPI{router: r, engine: engine}
	w := api.do(t, http.MethodPost, "/v1/owner/auth/login", map[string]string{"username": "dono", "password": "s3nha"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &pair); err != nil {
		t.Fatalf("decode pair: %v", err)
	}
	api.token = pair.AccessToken
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// quoteFromPhoto runs a customer photo through the engine and returns the quote id.
func (a *testAPI) quoteFromPhoto(t *testing.T) string {
	t.Helper()
	err := a.engine.HandleInbound(context.Background(), whatsapp.Event{
		Phone:  testPhone,
		Kind:   whatsapp.KindImage,
		Base64: base64.StdEncoding.EncodeToString([]byte("para-choque")),
		MIME:   "image/jpeg",
	})
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}
	w := a.do(t, http.MethodGet, "/v1/owner/quotes?status=PENDENTE", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var out struct {
		Quotes []quote.Quote `json:"quotes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Quotes) != 1 {
		t.Fatalf("expected one pending quote, got %d", len(out.Quotes))
	}
	return out.Quotes[0].ID
}

func TestLoginRejectsBadPassword(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""
	w := api.do(t, http.MethodPost, "/v1/owner/auth/login", map[string]string{"username": "dono", "password": "x"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = api.do(t, http.MethodPost, "/v1/owner/auth/login", map[string]string{"username": "dono"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t)
	api.token = ""
	w := api.do(t, http.MethodGet, "/v1/owner/quotes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMeReturnsOwnerIdentity(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/v1/owner/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["user_id"] != "dono" || out["shop_id"] != "oficina" || out["role"] != rbac.RoleOwner {
		t.Fatalf("unexpected identity %v", out)
	}
}

func TestApproveFlow(t *testing.T) {
	api := newTestAPI(t)
	id := api.quoteFromPhoto(t)

	w := api.do(t, http.MethodPost, "/v1/owner/quotes/"+id+"/approve", map[string]string{})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("approve without date: expected 422, got %d", w.Code)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/quotes/"+id+"/approve", map[string]string{"scheduled_date": "2099-03-10", "note": "ok"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}
	var d workflow.Decision
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Quote.Status != quote.StatusApproved || d.Quote.ScheduledDate != "2099-03-10" {
		t.Fatalf("unexpected quote %+v", d.Quote)
	}
	if d.Attendance.State != attendance.StateClosed {
		t.Fatalf("unexpected state %s", d.Attendance.State)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/quotes/"+id+"/reject", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("reject after approve: expected 409, got %d", w.Code)
	}
}

func TestRejectWithoutBodyUsesDefaultReason(t *testing.T) {
	api := newTestAPI(t)
	id := api.quoteFromPhoto(t)

	w := api.do(t, http.MethodPost, "/v1/owner/quotes/"+id+"/reject", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", w.Code, w.Body.String())
	}
	var d workflow.Decision
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Quote.RejectReason != quote.DefaultRejectReason {
		t.Fatalf("unexpected reason %q", d.Quote.RejectReason)
	}
}

func TestManualCloseRecordsOwner(t *testing.T) {
	api := newTestAPI(t)
	id := api.quoteFromPhoto(t)

	w := api.do(t, http.MethodPost, "/v1/owner/quotes/"+id+"/manual-close", map[string]any{"final_value": 380.5, "note": "fechado no balcao"})
	if w.Code != http.StatusOK {
		t.Fatalf("manual close: %d %s", w.Code, w.Body.String())
	}
	var d workflow.Decision
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Quote.Status != quote.StatusManualClosed || d.Quote.ClosedBy != "dono" {
		t.Fatalf("unexpected quote %+v", d.Quote)
	}
	if d.Quote.FinalValue == nil || *d.Quote.FinalValue != 380.5 {
		t.Fatalf("unexpected final value %v", d.Quote.FinalValue)
	}
}

func TestQuoteLookupErrors(t *testing.T) {
	api := newTestAPI(t)
	if w := api.do(t, http.MethodGet, "/v1/owner/quotes/missing", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/v1/owner/quotes?status=NOPE", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/v1/owner/quotes?limit=-1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTakeoverAndRelease(t *testing.T) {
	api := newTestAPI(t)
	if w := api.do(t, http.MethodPost, "/v1/owner/attendances/"+testPhone+"/takeover", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown phone: expected 404, got %d", w.Code)
	}
	api.quoteFromPhoto(t)

	w := api.do(t, http.MethodPost, "/v1/owner/attendances/"+testPhone+"/takeover", map[string]any{"minutes": 30, "reason": "cliente ligou"})
	if w.Code != http.StatusOK {
		t.Fatalf("takeover: %d %s", w.Code, w.Body.String())
	}
	var a attendance.Attendance
	_ = json.Unmarshal(w.Body.Bytes(), &a)
	if a.Mode != attendance.ModeManual {
		t.Fatalf("expected manual mode, got %s", a.Mode)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/attendances/"+testPhone+"/release", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("release: %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &a)
	if a.Mode == attendance.ModeManual || a.State != attendance.StateAwaitingDate {
		t.Fatalf("unexpected attendance after release %+v", a)
	}

	w = api.do(t, http.MethodGet, "/v1/owner/attendances/"+testPhone+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("messages: %d", w.Code)
	}
	if w = api.do(t, http.MethodPost, "/v1/owner/attendances/abc/takeover", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad phone: expected 400, got %d", w.Code)
	}
}

func TestAgendaRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/owner/agenda/generate", map[string]any{"from": "2099-01-05", "days": 2, "capacity": 4})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	var gen agenda.GenerateResult
	_ = json.Unmarshal(w.Body.Bytes(), &gen)
	if gen.Created != 4 {
		t.Fatalf("expected 4 slots created, got %+v", gen)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/agenda/block", map[string]string{"date": "2099-01-05", "period": "manha"})
	if w.Code != http.StatusOK {
		t.Fatalf("block: %d %s", w.Code, w.Body.String())
	}

	w = api.do(t, http.MethodGet, "/v1/owner/agenda?from=2099-01-05&to=2099-01-06", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var out struct {
		Slots []agenda.Availability `json:"slots"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if len(out.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(out.Slots))
	}
	blocked := 0
	for _, s := range out.Slots {
		if s.Blocked {
			blocked++
		}
		if s.Capacity != 4 {
			t.Fatalf("unexpected capacity %d", s.Capacity)
		}
	}
	if blocked != 1 {
		t.Fatalf("expected one blocked slot, got %d", blocked)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/agenda/unblock", map[string]string{"date": "2099-01-05", "period": "MANHA"})
	if w.Code != http.StatusOK {
		t.Fatalf("unblock: %d", w.Code)
	}

	w = api.do(t, http.MethodPost, "/v1/owner/agenda/block", map[string]string{"date": "2099-01-05", "period": "noite"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad period: expected 400, got %d", w.Code)
	}
	w = api.do(t, http.MethodGet, "/v1/owner/agenda?from=2099-01-06&to=2099-01-05", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", w.Code)
	}

	if w = api.do(t, http.MethodGet, "/v1/owner/agenda/open?days=7", nil); w.Code != http.StatusOK {
		t.Fatalf("open slots: %d %s", w.Code, w.Body.String())
	}
	if w = api.do(t, http.MethodGet, "/v1/owner/agenda/open?days=-1", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("negative days: expected 400, got %d", w.Code)
	}
	if w = api.do(t, http.MethodGet, "/v1/owner/agenda/open?days=365", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("too many days: expected 400, got %d", w.Code)
	}
}

func TestSummaryReport(t *testing.T) {
	api := newTestAPI(t)
	api.quoteFromPhoto(t)

	w := api.do(t, http.MethodGet, "/v1/owner/reports/summary", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	var out reporting.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Quotes.Total != 1 || out.Quotes.Pending != 1 || out.Quotes.AutoPriced != 1 {
		t.Fatalf("unexpected summary %+v", out.Quotes)
	}

	w = api.do(t, http.MethodGet, "/v1/owner/reports/summary?from=2025-12-10&to=2025-12-01", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", w.Code)
	}
}
