package sales

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
)

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryKeys) Reserve(_ context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[module+":"+key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[module+":"+key] = true
	return nil
}

func (m *memoryKeys) Release(_ context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, module+":"+key)
	return nil
}

func newHandlerRouter(repo *memoryRepo, keys *memoryKeys) http.Handler {
	svc := newTestService(repo, time.Date(2026, 2, 2, 12, 0, 0, 0, amsterdam))
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, keys)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postSale(router http.Handler, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateSaleWithIdempotencyKey(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, "p1", 5, 0)
	keys := &memoryKeys{keys: map[string]bool{}}
	router := newHandlerRouter(repo, keys)
	body := `{"lines":[{"productId":"p1","quantity":1,"unitPrice":"12.00"}],"paymentMethod":"cash"}`

	rec := postSale(router, body, "abc")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	assert.Equal(t, "SALE-20260202-0001", sale.Number)

	rec = postSale(router, body, "abc")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, repo.sales, 1)

	getReq := httptest.NewRequest(http.MethodGet, "/sales/"+sale.Number, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestHandlerFailedSaleReleasesKey(t *testing.T) {
	repo := newMemoryRepo()
	seedProduct(repo, "p1", 1, 0)
	keys := &memoryKeys{keys: map[string]bool{}}
	router := newHandlerRouter(repo, keys)

	rec := postSale(router, `{"lines":[{"productId":"p1","quantity":2,"unitPrice":"1"}],"paymentMethod":"pin"}`, "k1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, keys.keys)

	rec = postSale(router, `{"lines":[{"productId":"p1","quantity":1,"unitPrice":"1"}],"paymentMethod":"pin"}`, "k1")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandlerUnknownSaleIsNotFound(t *testing.T) {
	router := newHandlerRouter(newMemoryRepo(), &memoryKeys{keys: map[string]bool{}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales/SALE-20260101-0001", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
