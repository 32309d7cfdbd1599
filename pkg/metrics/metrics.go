// Package metrics Prometheus指标
//
// 指标在InitMetrics中注册到默认Registry，由/metrics端点暴露。
// 命名约定：Counter以_total结尾，Histogram以单位结尾。
// 标签只使用有限取值（method、route、operation、result），不要用ID做标签。
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookshelf"

var (
	once sync.Once

	// HTTP

	// HTTPRequestsTotal 标签：method、route、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration 标签：method、route
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的请求数
	HTTPRequestsInProgress prometheus.Gauge

	// HTTPRequestsRejectedTotal 被限流拒绝的请求数
	HTTPRequestsRejectedTotal prometheus.Counter

	// 用户-图书组合操作

	// UserBookOperationsTotal 标签：operation（create/update/get/delete）、result（success/failure）
	UserBookOperationsTotal *prometheus.CounterVec

	// UserBookOperationDuration 标签：operation
	UserBookOperationDuration *prometheus.HistogramVec

	// Saga

	// SagaCompensationsTotal 成功执行的补偿步骤数
	SagaCompensationsTotal prometheus.Counter

	// SagaCompensationFailuresTotal 失败的补偿步骤数，出现即需人工排查残留数据
	SagaCompensationFailuresTotal prometheus.Counter

	// 缓存

	// CacheRequestsTotal 标签：cache、result（hit/miss/error/bypass）
	CacheRequestsTotal *prometheus.CounterVec

	// 熔断器

	// CircuitBreakerState 0=CLOSED 1=OPEN 2=HALF_OPEN，标签：name
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列

	// MessagesPublishedTotal 标签：exchange、routing_key、result
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册全部指标，可重复调用
func InitMetrics() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求耗时",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_progress",
		Help:      "正在处理的HTTP请求数",
	})

	HTTPRequestsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_rejected_total",
		Help:      "被限流拒绝的HTTP请求数",
	})

	UserBookOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_book_operations_total",
			Help:      "用户-图书组合操作总数",
		},
		[]string{"operation", "result"},
	)

	UserBookOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "user_book_operation_duration_seconds",
			Help:      "用户-图书组合操作耗时",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SagaCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_compensations_total",
		Help:      "成功执行的补偿步骤数",
	})

	SagaCompensationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "saga_compensation_failures_total",
		Help:      "执行失败的补偿步骤数",
	})

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "缓存访问次数",
		},
		[]string{"cache", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "熔断器状态（0=CLOSED 1=OPEN 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "经过熔断器的请求数",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "消息发布次数",
		},
		[]string{"exchange", "routing_key", "result"},
	)
}

// 以下helper在指标未初始化时自动初始化

// ObserveHTTP 记录一次HTTP请求
func ObserveHTTP(method, route string, status int, d time.Duration) {
	InitMetrics()
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackInFlight 进行中请求数+1，返回的函数用于-1
func TrackInFlight() func() {
	InitMetrics()
	HTTPRequestsInProgress.Inc()
	return HTTPRequestsInProgress.Dec
}

// IncRejected 记录被限流拒绝的请求
func IncRejected() {
	InitMetrics()
	HTTPRequestsRejectedTotal.Inc()
}

// ObserveOperation 记录一次用户-图书组合操作
func ObserveOperation(operation string, err error, d time.Duration) {
	InitMetrics()
	UserBookOperationsTotal.WithLabelValues(operation, resultOf(err)).Inc()
	UserBookOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncCompensation 补偿成功
func IncCompensation() {
	InitMetrics()
	SagaCompensationsTotal.Inc()
}

// IncCompensationFailure 补偿失败
func IncCompensationFailure() {
	InitMetrics()
	SagaCompensationFailuresTotal.Inc()
}

// IncCache 记录缓存访问结果
func IncCache(cache, result string) {
	InitMetrics()
	CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// SetBreakerState 记录熔断器状态
func SetBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncBreakerRequest 记录经过熔断器的请求
func IncBreakerRequest(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// IncPublished 记录消息发布
func IncPublished(exchange, routingKey string, err error) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, resultOf(err)).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
