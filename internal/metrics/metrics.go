// Package metrics provides Prometheus metrics for image-tiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "image_tiers"

var (
	// HTTPRequestsTotal 按路由与状态码统计请求数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)

	// ImagesCreatedTotal 上传结果
	ImagesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_created_total",
			Help:      "Total number of image creations by status",
		},
		[]string{"status"},
	)

	// ThumbnailsGeneratedTotal 生成的缩略图数量
	ThumbnailsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnails_generated_total",
			Help:      "Total number of thumbnails generated",
		},
		[]string{"backend"},
	)

	// PipelineDuration 一次创建的处理耗时
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of the image creation pipeline in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// LinksIssuedTotal 签发的临时链接数量
	LinksIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_issued_total",
			Help:      "Total number of temporary links issued",
		},
	)

	// LinkValidationsTotal 临时链接校验结果: ok, invalid, expired, mismatch
	LinkValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_validations_total",
			Help:      "Total number of temporary link validations by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordImageCreated 记录一次上传
func RecordImageCreated(status string, seconds float64) {
	ImagesCreatedTotal.WithLabelValues(status).Inc()
	PipelineDuration.Observe(seconds)
}

// RecordLinkValidation 记录一次临时链接校验
func RecordLinkValidation(outcome string) {
	LinkValidationsTotal.WithLabelValues(outcome).Inc()
}
