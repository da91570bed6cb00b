package internal

import (
	"broadcast-relay/domain"
	"broadcast-relay/observability"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestStatsHandler_Serves_Json(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	monitoring := observability.NewMonitoringManager(log)
	monitoring.IncrConnectionsOpened()
	monitoring.IncrMessagesReceived()
	monitoring.AddDelivery(domain.Delivery{Recipients: 2, Delivered: 1, Failed: 1})

	handler := NewStatsHandler(log, monitoring, func() int { return 5 })
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("application/json", rec.Header().Get("Content-Type"))
	var stats observability.MonitoringStats
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	req.Equal(5, stats.ActiveConnections)
	req.Equal(uint64(1), stats.ConnectionsOpened)
	req.Equal(uint64(1), stats.MessagesRelayed)
	req.Equal(uint64(1), stats.Deliveries)
	req.Equal(uint64(1), stats.DeliveryFailures)
}

func TestStatsHandler_Rejects_Post(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	handler := NewStatsHandler(log, observability.NewMonitoringManager(log), nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))

	req.Equal(http.StatusMethodNotAllowed, rec.Code)
}
