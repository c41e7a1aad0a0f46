package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Alias1177/coinbridge/internal/api/coinmarketcap"
	"github.com/Alias1177/coinbridge/internal/bridge"
	"github.com/Alias1177/coinbridge/internal/endpoint"
	"github.com/Alias1177/coinbridge/internal/timeframe"
)

// APIKeyHeader lets HTTP callers pass their key without putting it in the URL.
const APIKeyHeader = "X-CMC-API-Key"

type handler struct {
	svc        *bridge.Service
	defaultKey string
}

func (h *handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (h *handler) historical(c echo.Context) error {
	raw := endpoint.Historical(
		c.Param("symbol"),
		c.QueryParam("timeframe"),
		c.QueryParam("interval"),
		h.apiKey(c),
	)
	return h.answer(c, raw)
}

func (h *handler) cryptoPrices(c echo.Context) error {
	raw := endpoint.Latest(0, h.apiKey(c))
	if limit := c.QueryParam("limit"); limit != "" {
		raw += "&limit=" + url.QueryEscape(limit)
	}
	return h.answer(c, raw)
}

func (h *handler) answer(c echo.Context, raw string) error {
	body, res, err := h.svc.Respond(c.Request().Context(), raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not encode response")
	}
	return c.JSONBlob(StatusFor(res.Err), body)
}

func (h *handler) apiKey(c echo.Context) string {
	if key := strings.TrimSpace(c.Request().Header.Get(APIKeyHeader)); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.QueryParam("api_key")); key != "" {
		return key
	}
	return h.defaultKey
}

// StatusFor maps a bridge error to an HTTP status code.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var parseErr *endpoint.ParseError
	var resolveErr *timeframe.ResolveError
	if errors.As(err, &parseErr) || errors.As(err, &resolveErr) {
		return http.StatusBadRequest
	}

	var fe *coinmarketcap.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case coinmarketcap.KindUnauthorized:
			return http.StatusUnauthorized
		case coinmarketcap.KindRateLimited:
			return http.StatusTooManyRequests
		case coinmarketcap.KindNoData:
			return http.StatusNotFound
		case coinmarketcap.KindRejected:
			return http.StatusBadRequest
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
