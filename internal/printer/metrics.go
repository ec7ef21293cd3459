package printer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printbridge_connect_attempts_total",
		Help: "BLE connect attempts by result.",
	}, []string{"result"})

	printJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printbridge_print_jobs_total",
		Help: "Print transfers by result.",
	}, []string{"result"})

	printBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printbridge_print_bytes_total",
		Help: "Payload bytes delivered to the printer.",
	})

	printChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printbridge_print_chunks_total",
		Help: "Chunks written to the printer.",
	})
)
