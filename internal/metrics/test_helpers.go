package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CounterValue returns the current value of the CounterVec child selected by
// labels. It is used by tests across packages to assert on recorded outcomes.
func CounterValue(metric *prometheus.CounterVec, labels ...string) (float64, error) {
	pb := &dto.Metric{}
	if err := metric.WithLabelValues(labels...).Write(pb); err != nil {
		return 0, err
	}
	return pb.GetCounter().GetValue(), nil
}

// GaugeValue returns the current value of a plain Gauge.
func GaugeValue(metric prometheus.Gauge) (float64, error) {
	pb := &dto.Metric{}
	if err := metric.Write(pb); err != nil {
		return 0, err
	}
	return pb.GetGauge().GetValue(), nil
}

// HistogramCount returns the number of observations recorded by the
// HistogramVec child selected by labels.
func HistogramCount(metric *prometheus.HistogramVec, labels ...string) (uint64, error) {
	observer, err := metric.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}
	pb := &dto.Metric{}
	if err := observer.(prometheus.Metric).Write(pb); err != nil {
		return 0, err
	}
	return pb.GetHistogram().GetSampleCount(), nil
}
