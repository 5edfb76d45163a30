// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrate

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// orchestrateTracerName is the OTel tracer name for orchestration runs.
const orchestrateTracerName = "bindsmith.orchestrate"

// Package-level Prometheus metrics for orchestration.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// attemptDuration measures one generate+validate cycle.
	//
	// Labels:
	//   - outcome: "valid", "invalid", "generator_error"
	attemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bindsmith",
			Subsystem: "orchestrate",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of one generate+validate attempt in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	// attemptsTotal counts attempts by outcome.
	//
	// Labels:
	//   - outcome: "valid", "invalid", "generator_error"
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bindsmith",
			Subsystem: "orchestrate",
			Name:      "attempts_total",
			Help:      "Total generate+validate attempts.",
		},
		[]string{"outcome"},
	)

	// runsTotal counts completed orchestration runs.
	//
	// Labels:
	//   - result: "success" or "exhausted"
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bindsmith",
			Subsystem: "orchestrate",
			Name:      "runs_total",
			Help:      "Total orchestration runs by terminal result.",
		},
		[]string{"result"},
	)

	// runDuration measures full orchestration runs.
	//
	// Labels:
	//   - result: "success" or "exhausted"
	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bindsmith",
			Subsystem: "orchestrate",
			Name:      "run_duration_seconds",
			Help:      "Duration of full orchestration runs in seconds.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"result"},
	)
)

// startRunSpan opens a tracing span for one orchestration run.
func startRunSpan(ctx context.Context, component, runID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(orchestrateTracerName)
	return tracer.Start(ctx, "orchestrate.Run", trace.WithAttributes(
		attribute.String("binding.component", component),
		attribute.String("binding.run_id", runID),
	))
}

// setRunSpanResult attaches terminal state attributes to a run span.
func setRunSpanResult(span trace.Span, state State, attempts int) {
	span.SetAttributes(
		attribute.String("binding.state", state.String()),
		attribute.Int("binding.attempts", attempts),
	)
}

// recordAttemptMetrics records one generate+validate cycle.
func recordAttemptMetrics(duration time.Duration, outcome string) {
	attemptDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	attemptsTotal.WithLabelValues(outcome).Inc()
}

// recordRunMetrics records a completed run.
func recordRunMetrics(duration time.Duration, _ int, success bool) {
	result := "exhausted"
	if success {
		result = "success"
	}
	runsTotal.WithLabelValues(result).Inc()
	runDuration.WithLabelValues(result).Observe(duration.Seconds())
}
