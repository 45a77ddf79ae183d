package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the broker's domain counters.
type Metrics struct {
	CredentialsIssued metric.Int64Counter
	FactorsIngested   metric.Int64Counter
	SignalsIngested   metric.Int64Counter
	SignalsDecayed    metric.Int64Counter
}

// NewMetrics registers the broker counters on the global meter provider
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("glyph")

	credentialsIssued, err := meter.Int64Counter("glyph_credentials_issued_total",
		metric.WithDescription("Number of Glyph credentials issued"))
	if err != nil {
		return nil, err
	}

	factorsIngested, err := meter.Int64Counter("glyph_factors_ingested_total",
		metric.WithDescription("Number of auth factor upserts"))
	if err != nil {
		return nil, err
	}

	signalsIngested, err := meter.Int64Counter("glyph_signals_ingested_total",
		metric.WithDescription("Number of trust signal reports ingested"))
	if err != nil {
		return nil, err
	}

	signalsDecayed, err := meter.Int64Counter("glyph_signals_decayed_total",
		metric.WithDescription("Number of trust signals removed by retention sweeps"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		CredentialsIssued: credentialsIssued,
		FactorsIngested:   factorsIngested,
		SignalsIngested:   signalsIngested,
		SignalsDecayed:    signalsDecayed,
	}, nil
}

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}
