// Package observe provides the OpenTelemetry metrics recorded by the frame
// loop, the speech feedback worker and the HTTP server.
//
// Metrics are exported in Prometheus format via [InitProvider] and served on
// /metrics. Tests should build their own [Metrics] with [NewMetrics] and a
// ManualReader-backed provider instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ayusman/mudra"

// Metrics holds the metric instruments of the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Frames counts processed frames. Attribute "hands" carries the hand count.
	Frames metric.Int64Counter

	// FrameDuration tracks detect+classify+render time per frame.
	FrameDuration metric.Float64Histogram

	// Transitions counts gesture transitions. Attribute "to" is the new id
	// ("none" when the hand left the frame).
	Transitions metric.Int64Counter

	// SpeechRequests counts speech requests by status: "started", "dropped",
	// "muted".
	SpeechRequests metric.Int64Counter

	// SpeechFailures counts failed feedback clips by stage.
	SpeechFailures metric.Int64Counter

	// SpeechActive is 1 while a clip is being synthesized or played.
	SpeechActive metric.Int64UpDownCounter

	// SynthesisDuration tracks text-to-speech latency.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks how long clips play.
	PlaybackDuration metric.Float64Histogram

	// HTTPRequestDuration tracks API latency by method and path.
	HTTPRequestDuration metric.Float64Histogram
}

var frameBuckets = []float64{
	0.005, 0.01, 0.02, 0.033, 0.05, 0.066, 0.1, 0.2, 0.5,
}

var speechBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2, 4, 8, 16,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("mudra.frames",
		metric.WithDescription("Frames processed by the gesture loop."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("mudra.frame.duration",
		metric.WithDescription("Time spent detecting, classifying and drawing one frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("mudra.gesture.transitions",
		metric.WithDescription("Debounced gesture changes by target gesture."),
	); err != nil {
		return nil, err
	}
	if met.SpeechRequests, err = m.Int64Counter("mudra.speech.requests",
		metric.WithDescription("Spoken feedback requests by status."),
	); err != nil {
		return nil, err
	}
	if met.SpeechFailures, err = m.Int64Counter("mudra.speech.failures",
		metric.WithDescription("Spoken feedback failures by stage."),
	); err != nil {
		return nil, err
	}
	if met.SpeechActive, err = m.Int64UpDownCounter("mudra.speech.active",
		metric.WithDescription("Spoken feedback clips in flight."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("mudra.speech.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("mudra.speech.playback.duration",
		metric.WithDescription("Playback time of spoken feedback clips."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(speechBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("mudra.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// meter provider. Call it after InitProvider so the instruments are exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrame records one processed frame.
func (m *Metrics) RecordFrame(ctx context.Context, hands int, d time.Duration) {
	if m == nil {
		return
	}
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.Int("hands", hands)))
	m.FrameDuration.Record(ctx, d.Seconds())
}

// RecordTransition records a gesture change to id.
func (m *Metrics) RecordTransition(ctx context.Context, id string) {
	if m == nil {
		return
	}
	if id == "" {
		id = "none"
	}
	m.Transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("to", id)))
}

// RecordSpeechRequest records a speech request outcome at the gate.
func (m *Metrics) RecordSpeechRequest(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.SpeechRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSpeechFailure records a failed clip at stage.
func (m *Metrics) RecordSpeechFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.SpeechFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// SpeechStarted marks a clip as in flight.
func (m *Metrics) SpeechStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.SpeechActive.Add(ctx, 1)
}

// SpeechFinished marks the in-flight clip as done.
func (m *Metrics) SpeechFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.SpeechActive.Add(ctx, -1)
}

// RecordSynthesis records synthesis latency.
func (m *Metrics) RecordSynthesis(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisDuration.Record(ctx, d.Seconds())
}

// RecordPlayback records how long a clip played.
func (m *Metrics) RecordPlayback(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.PlaybackDuration.Record(ctx, d.Seconds())
}
