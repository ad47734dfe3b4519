package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

type fakeJobExecutor struct {
	jobType enums.JobType
	payload scheduler.JobPayload
	result  any
	err     error
}

func (f *fakeJobExecutor) Execute(ctx context.Context, jobType enums.JobType, payload scheduler.JobPayload) (any, error) {
	f.jobType = jobType
	f.payload = payload
	return f.result, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestScheduler(t *testing.T, exec *fakeJobExecutor) *scheduler.Scheduler {
	t.Helper()
	logg := testLogger()
	queue, err := scheduler.NewImmediateQueue(logg, exec)
	if err != nil {
		t.Fatalf("immediate queue: %v", err)
	}
	sched, err := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger:   logg,
		Queue:    queue,
		Executor: exec,
	})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return sched
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeData(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return envelope.Data
}

func TestDeployProductInvalidID(t *testing.T) {
	sched := newTestScheduler(t, &fakeJobExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/not-a-uuid/deploy", nil)
	req = addRouteParam(req, "id", "not-a-uuid")
	resp := httptest.NewRecorder()

	DeployProduct(sched, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeployProductRunsInline(t *testing.T) {
	exec := &fakeJobExecutor{result: map[string]any{"remoteProductId": "900"}}
	sched := newTestScheduler(t, exec)
	productID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/"+productID.String()+"/deploy", nil)
	req = addRouteParam(req, "id", productID.String())
	resp := httptest.NewRecorder()

	DeployProduct(sched, testLogger())(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
	if exec.jobType != enums.JobTypeProductSync {
		t.Fatalf("unexpected job type %s", exec.jobType)
	}
	if exec.payload.ProductID == nil || *exec.payload.ProductID != productID {
		t.Fatalf("executor missing product id")
	}
	data := decodeData(t, resp.Body.Bytes())
	if data["immediate"] != true {
		t.Fatal("expected immediate result")
	}
}

func TestTriggerInventorySyncModes(t *testing.T) {
	cases := []struct {
		body          string
		bidirectional bool
	}{
		{`{}`, true},
		{`{"mode":"readonly"}`, false},
		{`{"mode":"bidirectional"}`, true},
	}
	for _, tc := range cases {
		exec := &fakeJobExecutor{}
		sched := newTestScheduler(t, exec)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/inventory", strings.NewReader(tc.body))
		resp := httptest.NewRecorder()

		TriggerInventorySync(sched, testLogger())(resp, req)

		if resp.Code != http.StatusAccepted {
			t.Fatalf("body %s: expected 202 got %d: %s", tc.body, resp.Code, resp.Body.String())
		}
		if exec.jobType != enums.JobTypeInventorySync {
			t.Fatalf("body %s: unexpected job type %s", tc.body, exec.jobType)
		}
		if exec.payload.Bidirectional != tc.bidirectional {
			t.Fatalf("body %s: expected bidirectional=%v", tc.body, tc.bidirectional)
		}
	}
}

func TestTriggerProductSyncPassesOptions(t *testing.T) {
	exec := &fakeJobExecutor{}
	sched := newTestScheduler(t, exec)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/products", strings.NewReader(`{"limit":25,"syncDeletions":true}`))
	resp := httptest.NewRecorder()

	TriggerProductSync(sched, testLogger())(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", resp.Code, resp.Body.String())
	}
	if exec.jobType != enums.JobTypeShopifySync {
		t.Fatalf("unexpected job type %s", exec.jobType)
	}
	if exec.payload.Limit != 25 || !exec.payload.SyncDeletions {
		t.Fatalf("unexpected payload %+v", exec.payload)
	}
}

func TestTriggerProductSyncRejectsUnknownField(t *testing.T) {
	sched := newTestScheduler(t, &fakeJobExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/products", strings.NewReader(`{"bogus":1}`))
	resp := httptest.NewRecorder()

	TriggerProductSync(sched, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestScheduleRecurringRejectsBadCron(t *testing.T) {
	sched := newTestScheduler(t, &fakeJobExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/recurring", strings.NewReader(`{"name":"inventory-sync","cron":"not a cron"}`))
	resp := httptest.NewRecorder()

	ScheduleRecurring(sched, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestScheduleAndClearRecurring(t *testing.T) {
	sched := newTestScheduler(t, &fakeJobExecutor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/recurring", strings.NewReader(`{"name":"inventory-sync","cron":"0 */6 * * *"}`))
	resp := httptest.NewRecorder()
	ScheduleRecurring(sched, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(sched.ListRecurring()) != 1 {
		t.Fatal("expected one recurring entry")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/recurring/inventory-sync", nil)
	req = addRouteParam(req, "name", "inventory-sync")
	resp = httptest.NewRecorder()
	ClearRecurring(sched, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(sched.ListRecurring()) != 0 {
		t.Fatal("expected recurring entry cleared")
	}
}

func TestJobStatsImmediateMode(t *testing.T) {
	sched := newTestScheduler(t, &fakeJobExecutor{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/stats", nil)
	resp := httptest.NewRecorder()

	JobStats(sched, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	data := decodeData(t, resp.Body.Bytes())
	queue, ok := data["queue"].(map[string]any)
	if !ok {
		t.Fatalf("missing queue stats: %v", data)
	}
	if queue["available"] != false {
		t.Fatal("expected queue unavailable in immediate mode")
	}
}

func TestListSyncLogsRejectsBadFilter(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:controllers-synclogs?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := catalog.NewRepository(gdb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/logs?operation=bogus", nil)
	resp := httptest.NewRecorder()

	ListSyncLogs(repo, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListSyncLogsRejectsBadChannel(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:controllers-synclogs-channel?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := catalog.NewRepository(gdb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/logs?channel=bogus", nil)
	resp := httptest.NewRecorder()

	ListSyncLogs(repo, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetProductBySKURequiresSKU(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:controllers-products?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := catalog.NewRepository(gdb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/", nil)
	resp := httptest.NewRecorder()

	GetProductBySKU(repo, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListInventoryRejectsBadChannel(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:controllers-inventory?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := catalog.NewRepository(gdb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/?channel=bogus", nil)
	resp := httptest.NewRecorder()

	ListInventory(repo, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVariantInventoryInvalidID(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:controllers-variant?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := catalog.NewRepository(gdb)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/variants/not-a-uuid", nil)
	req = addRouteParam(req, "id", "not-a-uuid")
	resp := httptest.NewRecorder()

	VariantInventory(repo, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
