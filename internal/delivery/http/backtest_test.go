package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-backtest/internal/dto"
	"crypto-backtest/internal/engine"
	"crypto-backtest/internal/service"
)

// stubBacktestService returns a canned result or error.
type stubBacktestService struct {
	data *dto.BacktestData
	err  error
}

func (s *stubBacktestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func (s *stubBacktestService) RunBatchBacktest(ctx context.Context, req dto.BacktestRequest, symbols []string) (map[string]*dto.BacktestData, error) {
	if s.err != nil {
		return nil, s.err
	}
	results := make(map[string]*dto.BacktestData, len(symbols))
	for _, symbol := range symbols {
		results[symbol] = s.data
	}
	return results, nil
}

func newTestHandler(stub *stubBacktestService) *HttpAPIHandler {
	e := echo.New()
	h := NewHttpAPIHandler(context.Background(), e, goValidator.New(), &service.Service{BacktestService: stub})
	h.SetupRoutes()
	return h
}

func validBody(t *testing.T) string {
	t.Helper()
	start := time.Now().AddDate(0, -2, 0).UTC()
	end := time.Now().AddDate(0, -1, 0).UTC()

	body := map[string]interface{}{
		"strategy_type": "RSI",
		"strategy_params": map[string]interface{}{
			"symbol":   "BTCUSDT",
			"interval": "1h",
			"risk_params": map[string]interface{}{
				"position_size_usd":    1000,
				"take_profit_percent":  5,
				"stop_loss_percent":    2,
				"max_drawdown_percent": 20,
				"max_positions":        1,
			},
		},
		"start_date":      start.Format(time.RFC3339),
		"end_date":        end.Format(time.RFC3339),
		"initial_balance": 10000,
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return string(raw)
}

func doRequest(h *HttpAPIHandler, path, body string) (*httptest.ResponseRecorder, *dto.BaseResponse) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	var resp dto.BaseResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, &resp
}

func TestRunBacktestHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubBacktestService{data: &dto.BacktestData{
			Summary: dto.BacktestSummary{Symbol: "BTCUSDT", TotalTrades: 3},
		}}
		rec, resp := doRequest(newTestHandler(stub), "/api/backtest", validBody(t))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, resp := doRequest(newTestHandler(&stubBacktestService{}), "/api/backtest", "{not json")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.CodeValidationError, resp.Code)
	})

	t.Run("missing symbol", func(t *testing.T) {
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(validBody(t)), &body))
		delete(body["strategy_params"].(map[string]interface{}), "symbol")
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		rec, resp := doRequest(newTestHandler(&stubBacktestService{}), "/api/backtest", string(raw))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.CodeValidationError, resp.Code)
	})

	t.Run("insufficient data maps to 422", func(t *testing.T) {
		stub := &stubBacktestService{err: &engine.InsufficientDataError{Required: 15, Got: 5}}
		rec, resp := doRequest(newTestHandler(stub), "/api/backtest", validBody(t))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.CodeBacktestValidationError, resp.Code)
	})

	t.Run("execution failure maps to 500", func(t *testing.T) {
		stub := &stubBacktestService{err: &engine.ExecutionError{Cause: "boom"}}
		rec, resp := doRequest(newTestHandler(stub), "/api/backtest", validBody(t))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, dto.CodeBacktestFailed, resp.Code)
	})

	t.Run("unexpected error maps to internal", func(t *testing.T) {
		stub := &stubBacktestService{err: errors.New("disk on fire")}
		rec, resp := doRequest(newTestHandler(stub), "/api/backtest", validBody(t))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, dto.CodeInternalError, resp.Code)
	})
}

func TestRunBatchBacktestHandler(t *testing.T) {
	batchBody := func(t *testing.T, symbols ...interface{}) string {
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(validBody(t)), &body))
		delete(body["strategy_params"].(map[string]interface{}), "symbol")
		body["symbols"] = symbols
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		return string(raw)
	}

	t.Run("success", func(t *testing.T) {
		stub := &stubBacktestService{data: &dto.BacktestData{}}
		rec, resp := doRequest(newTestHandler(stub), "/api/backtest/batch", batchBody(t, "BTCUSDT", "ETHUSDT"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
	})

	t.Run("empty symbol list is rejected", func(t *testing.T) {
		rec, resp := doRequest(newTestHandler(&stubBacktestService{}), "/api/backtest/batch", batchBody(t))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.CodeValidationError, resp.Code)
	})

	t.Run("lowercase symbol is rejected", func(t *testing.T) {
		rec, resp := doRequest(newTestHandler(&stubBacktestService{}), "/api/backtest/batch", batchBody(t, "btcusdt"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.CodeValidationError, resp.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(&stubBacktestService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
