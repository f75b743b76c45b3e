package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewSizeGauge reports the live number of products held by s.
func NewSizeGauge(s *MemStore) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products currently held in the catalog",
		},
		func() float64 { return float64(s.Len()) },
	)
}
