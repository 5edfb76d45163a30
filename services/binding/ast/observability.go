// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// astTracerName is the OTel tracer name for binding IR extraction.
const astTracerName = "bindsmith.ast"

// Package-level Prometheus metrics for IR extraction.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// extractDuration measures the duration of binding source extractions.
	//
	// Labels:
	//   - status: "success" or "error"
	extractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bindsmith",
			Subsystem: "ast",
			Name:      "extract_duration_seconds",
			Help:      "Duration of binding IR extractions in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"status"},
	)

	// extractsTotal counts binding source extractions.
	//
	// Labels:
	//   - status: "success" or "error"
	extractsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bindsmith",
			Subsystem: "ast",
			Name:      "extracts_total",
			Help:      "Total binding IR extractions.",
		},
		[]string{"status"},
	)
)

// startExtractSpan opens a tracing span for one extraction.
func startExtractSpan(ctx context.Context, fileName string, sizeBytes int) (context.Context, trace.Span) {
	tracer := otel.Tracer(astTracerName)
	return tracer.Start(ctx, "ast.Extract", trace.WithAttributes(
		attribute.String("binding.file", fileName),
		attribute.Int("binding.size_bytes", sizeBytes),
	))
}

// setExtractSpanResult attaches result attributes to an extraction span.
func setExtractSpanResult(span trace.Span, connects, imports int) {
	span.SetAttributes(
		attribute.Int("binding.connects", connects),
		attribute.Int("binding.imports", imports),
	)
}

// recordExtractMetrics records one-shot metrics for a completed extraction.
//
// Thread Safety: Safe for concurrent use.
func recordExtractMetrics(_ context.Context, duration time.Duration, _ int, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	extractDuration.WithLabelValues(status).Observe(duration.Seconds())
	extractsTotal.WithLabelValues(status).Inc()
}
