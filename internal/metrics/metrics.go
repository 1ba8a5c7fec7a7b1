// Package metrics holds the prometheus counters of debug info generation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dwarfgen"

var (
	// unitsBuilt counts units by kind (compile, type).
	unitsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "units",
		Name:      "built_total",
		Help:      "Units finalized, by kind",
	}, []string{"kind"})

	entriesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "units",
		Name:      "entries_total",
		Help:      "Debug information entries laid out",
	})

	// typeUnitsDeduplicated counts type units whose signature was already
	// registered by another compile unit.
	typeUnitsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "type_units",
		Name:      "deduplicated_total",
		Help:      "Type units dropped because an equal unit was registered",
	})

	// finderNodes counts nodes collected by the finder, by list.
	finderNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "finder",
		Name:      "nodes_total",
		Help:      "Debug nodes collected by the finder, by list",
	}, []string{"list"})

	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generate_duration_seconds",
		Help:      "Time to generate debug information for a module",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})

	sectionBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "section_bytes_total",
		Help:      "Bytes encoded, by section",
	}, []string{"section"})
)

// RecordUnits records finalized units.
func RecordUnits(compileUnits, typeUnits, entries int) {
	unitsBuilt.WithLabelValues("compile").Add(float64(compileUnits))
	unitsBuilt.WithLabelValues("type").Add(float64(typeUnits))
	entriesBuilt.Add(float64(entries))
}

// RecordTypeUnitDeduplicated records one dropped duplicate type unit.
func RecordTypeUnitDeduplicated() { typeUnitsDeduplicated.Inc() }

// RecordFinder records the sizes of the finder's lists.
func RecordFinder(compileUnits, subprograms, globals, types, scopes int) {
	finderNodes.WithLabelValues("compile_units").Add(float64(compileUnits))
	finderNodes.WithLabelValues("subprograms").Add(float64(subprograms))
	finderNodes.WithLabelValues("global_variables").Add(float64(globals))
	finderNodes.WithLabelValues("types").Add(float64(types))
	finderNodes.WithLabelValues("scopes").Add(float64(scopes))
}

// ObserveGenerate records the duration of one generation; status is
// "success" or "error".
func ObserveGenerate(status string, seconds float64) {
	generateDuration.WithLabelValues(status).Observe(seconds)
}

// RecordSection records the size of an encoded section.
func RecordSection(name string, size int) {
	sectionBytes.WithLabelValues(name).Add(float64(size))
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
