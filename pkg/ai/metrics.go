package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	judgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "honmoon",
		Subsystem: "ai",
		Name:      "judge_duration_seconds",
		Help:      "Duration of AI judge requests",
	}, []string{"provider", "operation"})

	judgeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "honmoon",
		Subsystem: "ai",
		Name:      "judge_failures_total",
		Help:      "Number of failed AI judge requests",
	}, []string{"provider", "operation"})

	judgeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "honmoon",
		Subsystem: "ai",
		Name:      "judge_fallbacks_total",
		Help:      "Number of operations handed from the primary to the secondary judge",
	}, []string{"operation"})
)

const (
	operationAnalyzeImage     = "analyze_image"
	operationCheckTextAnswer  = "check_text_answer"
	operationCheckImageAnswer = "check_image_answer"
)
