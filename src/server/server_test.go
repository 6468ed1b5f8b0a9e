package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"agentexecutor/src/controller"
	"agentexecutor/src/model"
)

type stubPositions struct {
	open []model.Position
	byID map[uint]*model.Position
}

func (s *stubPositions) FindOpen(ctx context.Context) ([]model.Position, error) {
	return s.open, nil
}

func (s *stubPositions) FindByID(ctx context.Context, id uint) (*model.Position, error) {
	return s.byID[id], nil
}

type stubCloser struct {
	reasons []string
}

func (s *stubCloser) Close(ctx context.Context, position *model.Position, reason string, triggerPrice decimal.Decimal) (*controller.CloseResult, error) {
	s.reasons = append(s.reasons, reason)
	return &controller.CloseResult{Status: controller.CloseClosed, TxHash: "0xclose"}, nil
}

func TestHealthcheck(t *testing.T) {
	router := NewRouter(&stubPositions{}, &stubCloser{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestOpenPositionsEndpoint(t *testing.T) {
	positions := &stubPositions{open: []model.Position{
		{ID: 1, TokenSymbol: "WETH", Side: model.SideBuy},
	}}
	router := NewRouter(positions, &stubCloser{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/positions/open", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var decoded []model.Position
	if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(decoded) != 1 || decoded[0].TokenSymbol != "WETH" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestManualCloseUsesManualReason(t *testing.T) {
	positions := &stubPositions{byID: map[uint]*model.Position{
		5: {ID: 5, TokenSymbol: "WETH", Venue: model.VenueSpot},
	}}
	closer := &stubCloser{}
	router := NewRouter(positions, closer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/positions/5/close", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(closer.reasons) != 1 || closer.reasons[0] != model.CloseReasonManual {
		t.Fatalf("expected MANUAL close reason, got %v", closer.reasons)
	}
}

func TestManualCloseUnknownPositionIs404(t *testing.T) {
	router := NewRouter(&stubPositions{byID: map[uint]*model.Position{}}, &stubCloser{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/positions/99/close", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
