package app

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type appMetrics struct {
	blockHeight   prometheus.Gauge
	proposalCount prometheus.Gauge
	txsTotal      *prometheus.CounterVec
	blockTxs      prometheus.Histogram
}

func (m *appMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.blockHeight = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gov_app_block_height",
		Help: "height of the last finalized block",
	})
	m.proposalCount = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "gov_app_proposals_total",
		Help: "number of proposals ever created",
	})
	m.txsTotal = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "gov_app_txs_total",
		Help: "finalized transactions by type and result code",
	}, []string{"type", "code"})
	m.blockTxs = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "gov_app_block_txs",
		Help:    "transactions per finalized block",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
}

func (m *appMetrics) observeTx(txType string, code uint32) {
	m.txsTotal.WithLabelValues(txType, strconv.FormatUint(uint64(code), 10)).Inc()
}
