package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lirany1/cikit/pkg/logger"
)

// reportCollector exposes the counts of the served report on every scrape
type reportCollector struct {
	dir   string
	tests *prometheus.Desc
	time  *prometheus.Desc
}

func newReportCollector(dir string) *reportCollector {
	return &reportCollector{
		dir: dir,
		tests: prometheus.NewDesc(
			"cikit_report_tests",
			"Number of tests in the served report by outcome.",
			[]string{"outcome"}, nil,
		),
		time: prometheus.NewDesc(
			"cikit_report_duration_seconds",
			"Total duration of the served report.",
			nil, nil,
		),
	}
}

func (c *reportCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tests
	ch <- c.time
}

func (c *reportCollector) Collect(ch chan<- prometheus.Metric) {
	full, err := readReport(c.dir)
	if err != nil {
		logger.Debugf("No report data to collect: %v", err)
		return
	}
	s := full.Summary
	for outcome, n := range map[string]int{
		"passed":   s.Passed(),
		"failures": s.Failures,
		"errors":   s.Errors,
		"skipped":  s.Skipped,
	} {
		ch <- prometheus.MustNewConstMetric(c.tests, prometheus.GaugeValue, float64(n), outcome)
	}
	ch <- prometheus.MustNewConstMetric(c.time, prometheus.GaugeValue, s.Time.Std().Seconds())
}
