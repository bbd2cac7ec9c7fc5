package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	generations  *prometheus.CounterVec
	bestFitness  *prometheus.GaugeVec
	avgFitness   *prometheus.GaugeVec
	mutationRate *prometheus.GaugeVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New 在 reg 上注册所有指标，reg 同时需要实现 Gatherer 以便暴露 /metrics
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_scheduler_generations_total",
			Help: "已完成的迭代代数",
		}, []string{"strategy"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "activity_scheduler_best_fitness",
			Help: "当前运行的最优适应度",
		}, []string{"run_id"}),
		avgFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "activity_scheduler_average_fitness",
			Help: "当前运行的种群平均适应度",
		}, []string{"run_id"}),
		mutationRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "activity_scheduler_mutation_rate",
			Help: "当前运行的变异概率",
		}, []string{"run_id"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "activity_scheduler_runs_total",
			Help: "按结束状态统计的运行次数",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "activity_scheduler_run_duration_seconds",
			Help:    "单次运行耗时",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"strategy"}),
		gatherer: reg,
	}

	reg.MustRegister(m.generations, m.bestFitness, m.avgFitness, m.mutationRate, m.runs, m.runDuration)

	return m
}

func (m *Metrics) ObserveGeneration(runID int64, strategy string, best, avg, mutationRate float64) {
	id := strconv.FormatInt(runID, 10)
	m.generations.WithLabelValues(strategy).Inc()
	m.bestFitness.WithLabelValues(id).Set(best)
	m.avgFitness.WithLabelValues(id).Set(avg)
	m.mutationRate.WithLabelValues(id).Set(mutationRate)
}

// ObserveRunFinished 记录结束状态，并移除该运行的 gauge，避免 run_id 标签无限增长
func (m *Metrics) ObserveRunFinished(runID int64, strategy string, status string, duration time.Duration) {
	id := strconv.FormatInt(runID, 10)
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.bestFitness.DeleteLabelValues(id)
	m.avgFitness.DeleteLabelValues(id)
	m.mutationRate.DeleteLabelValues(id)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
