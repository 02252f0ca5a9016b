package services

import "github.com/prometheus/client_golang/prometheus"

var (
	complaintsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaints_submitted_total",
			Help: "Complaints accepted by the submission flow, by attachment presence.",
		},
		[]string{"attachment"},
	)

	storeMerges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_merges_total",
			Help: "Merges applied to the complaint store, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(complaintsSubmitted, storeMerges)
}
