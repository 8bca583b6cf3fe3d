package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"crypto-backtest/internal/dto"
	"crypto-backtest/internal/engine"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/batch", h.runBatchBacktest)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, "invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, err.Error()))
	}
	if req.StrategyParams.Symbol == "" {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, "strategy_params.symbol is required"))
	}
	if req.EndDate.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, "end_date must not be in the future"))
	}

	data, err := h.service.BacktestService.RunBacktest(ctx, *req)
	if err != nil {
		return h.backtestError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *HttpAPIHandler) runBatchBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BatchBacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, "invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, err.Error()))
	}
	if req.EndDate.After(time.Now()) {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.CodeValidationError, "end_date must not be in the future"))
	}

	results, err := h.service.BacktestService.RunBatchBacktest(ctx, req.BacktestRequest, req.Symbols)
	if err != nil {
		return h.backtestError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse(results))
}

// backtestError maps engine failures to the public error codes.
func (h *HttpAPIHandler) backtestError(c echo.Context, err error) error {
	var insufficientData *engine.InsufficientDataError
	var invalidConfig *engine.InvalidConfigurationError
	var execErr *engine.ExecutionError

	switch {
	case errors.As(err, &insufficientData), errors.As(err, &invalidConfig):
		return c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(dto.CodeBacktestValidationError, err.Error()))
	case errors.As(err, &execErr), errors.Is(err, engine.ErrCancelled):
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeBacktestFailed, err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.CodeInternalError, "failed to run backtest"))
	}
}
