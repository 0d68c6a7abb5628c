/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for chainforge telemetry. Forest
generation notifies reporters of processed trees, pairings, instantiation attempts and
accepted instantiations. Supports logging, Prometheus metrics and in-memory statistics.
*/

package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Reporter defines the interface for telemetry and reporting hooks.
// Allows forest generation to notify listeners of progress.
type Reporter interface {
	// OnTree is called once for every relational tree processed.
	OnTree(tree *RelationalTree)
	// OnPairing is called for every pairing that is kept after sampling.
	OnPairing(data *InstantiationData)
	// OnAttempt is called before searching with a given anti-factual set.
	OnAttempt(antiFactualVars, hops int)
	// OnInstantiation is called for every accepted instantiation.
	OnInstantiation(data *InstantiationData)
}

// MultiReporter fans events out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) OnTree(tree *RelationalTree) {
	for _, r := range m {
		r.OnTree(tree)
	}
}

func (m MultiReporter) OnPairing(data *InstantiationData) {
	for _, r := range m {
		r.OnPairing(data)
	}
}

func (m MultiReporter) OnAttempt(antiFactualVars, hops int) {
	for _, r := range m {
		r.OnAttempt(antiFactualVars, hops)
	}
}

func (m MultiReporter) OnInstantiation(data *InstantiationData) {
	for _, r := range m {
		r.OnInstantiation(data)
	}
}

// LoggerReporter logs forest generation events using logrus.
type LoggerReporter struct {
	logger logrus.FieldLogger
}

// NewLoggerReporter creates a new LoggerReporter.
func NewLoggerReporter(logger logrus.FieldLogger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnTree logs the tree being processed.
func (r *LoggerReporter) OnTree(tree *RelationalTree) {
	r.logger.WithFields(logrus.Fields{"tree": tree.String()}).Debug("Processing relational tree")
}

// OnPairing logs the pairing.
func (r *LoggerReporter) OnPairing(data *InstantiationData) {
	r.logger.WithFields(logrus.Fields{
		"pairing_var": data.Pairing.VarID,
		"pairing":     data.Pairing.Term,
		"answer_var":  data.AnswerID,
		"hops":        data.ReasoningHops,
	}).Debug("Pairing found")
}

// OnAttempt logs an instantiation attempt.
func (r *LoggerReporter) OnAttempt(antiFactualVars, hops int) {
	r.logger.WithFields(logrus.Fields{"af_vars": antiFactualVars, "hops": hops}).Debug("Attempting instantiation")
}

// OnInstantiation logs an accepted instantiation.
func (r *LoggerReporter) OnInstantiation(data *InstantiationData) {
	r.logger.WithFields(logrus.Fields{
		"id":      data.ID,
		"af_vars": len(data.AntiFactualIDs),
		"hops":    data.ReasoningHops,
	}).Info("Instantiation accepted")
}

// PrometheusReporter exports forest generation counters to Prometheus.
type PrometheusReporter struct {
	trees          prometheus.Counter
	pairings       *prometheus.CounterVec
	attempts       *prometheus.CounterVec
	instantiations *prometheus.CounterVec
}

// NewPrometheusReporter creates a new PrometheusReporter registered on reg.
// A nil registerer creates unregistered collectors.
func NewPrometheusReporter(reg prometheus.Registerer) *PrometheusReporter {
	factory := promauto.With(reg)
	return &PrometheusReporter{
		trees: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chainforge",
			Name:      "trees_processed_total",
			Help:      "Relational trees processed by forest generation.",
		}),
		pairings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainforge",
			Name:      "pairings_total",
			Help:      "Pairings kept after sampling, by reasoning hops.",
		}, []string{"hops"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainforge",
			Name:      "instantiation_attempts_total",
			Help:      "Beam search runs, by anti-factual variable count and reasoning hops.",
		}, []string{"af_vars", "hops"}),
		instantiations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chainforge",
			Name:      "instantiations_total",
			Help:      "Accepted instantiations, by anti-factual variable count and reasoning hops.",
		}, []string{"af_vars", "hops"}),
	}
}

// OnTree increments the tree counter.
func (r *PrometheusReporter) OnTree(*RelationalTree) {
	r.trees.Inc()
}

// OnPairing increments the pairing counter.
func (r *PrometheusReporter) OnPairing(data *InstantiationData) {
	r.pairings.WithLabelValues(strconv.Itoa(data.ReasoningHops)).Inc()
}

// OnAttempt increments the attempt counter.
func (r *PrometheusReporter) OnAttempt(antiFactualVars, hops int) {
	r.attempts.WithLabelValues(strconv.Itoa(antiFactualVars), strconv.Itoa(hops)).Inc()
}

// OnInstantiation increments the instantiation counter.
func (r *PrometheusReporter) OnInstantiation(data *InstantiationData) {
	r.instantiations.WithLabelValues(strconv.Itoa(len(data.AntiFactualIDs)), strconv.Itoa(data.ReasoningHops)).Inc()
}
