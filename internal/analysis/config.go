package analysis

import (
	"github.com/go-playground/validator/v10"

	apperrors "drivetest/internal/errors"
)

// Config carries every model threshold. All values are overridable per
// invocation; zero-value configs are invalid, start from DefaultConfig.
type Config struct {
	Coverage     CoverageConfig     `yaml:"coverage"`
	Interference InterferenceConfig `yaml:"interference"`
	Handover     HandoverConfig     `yaml:"handover"`
	Throughput   ThroughputConfig   `yaml:"throughput"`
	CallDrop     CallDropConfig     `yaml:"call_drop"`
	Overload     OverloadConfig     `yaml:"cell_overload"`
	Parameter    ParameterConfig    `yaml:"parameter_mismatch"`
	QoS          QoSConfig          `yaml:"qos"`
}

// CoverageConfig bounds the weak-coverage detector.
type CoverageConfig struct {
	RSRPThreshold float64 `yaml:"rsrp_threshold" validate:"lt=0,gte=-140"`
	RSRQThreshold float64 `yaml:"rsrq_threshold" validate:"lte=0,gte=-30"`
	// HoleDepth is how far below RSRPThreshold the mean must sit before a
	// run is classified as a coverage hole rather than weak coverage.
	HoleDepth    float64 `yaml:"hole_depth" validate:"gt=0"`
	MinRunLength int     `yaml:"min_run_length" validate:"gt=0"`
	MergeGap     int     `yaml:"merge_gap" validate:"gte=0"`
}

// InterferenceConfig bounds the SINR-low/RSRP-adequate discriminator.
type InterferenceConfig struct {
	SINRThreshold float64 `yaml:"sinr_threshold" validate:"gte=-20,lte=40"`
	// RSRPAdequate separates interference from plain coverage loss: SINR
	// below threshold only counts when RSRP is at least this strong.
	RSRPAdequate     float64 `yaml:"rsrp_adequate" validate:"lt=0,gte=-140"`
	MinRunLength     int     `yaml:"min_run_length" validate:"gt=0"`
	PilotNeighborMin int     `yaml:"pilot_neighbor_min" validate:"gt=0"`
}

// HandoverConfig bounds the per-cell-pair failure-rate detector.
type HandoverConfig struct {
	FailureRatio float64 `yaml:"failure_ratio" validate:"gt=0,lte=1"`
	MinAttempts  int     `yaml:"min_attempts" validate:"gt=0"`
	// WeakServingRSRP marks an attempt as too late when serving RSRP at
	// the attempt was already below this.
	WeakServingRSRP float64 `yaml:"weak_serving_rsrp" validate:"lt=0,gte=-140"`
}

// ThroughputConfig bounds the sustained low-throughput detector.
type ThroughputConfig struct {
	DLFloorKbps  float64 `yaml:"dl_floor_kbps" validate:"gt=0"`
	ULFloorKbps  float64 `yaml:"ul_floor_kbps" validate:"gt=0"`
	MinRunLength int     `yaml:"min_run_length" validate:"gt=0"`
	// RSRPAdequate and SINRAdequate decide the radio-vs-backhaul
	// attribution for a low-throughput run.
	RSRPAdequate float64 `yaml:"rsrp_adequate" validate:"lt=0,gte=-140"`
	SINRAdequate float64 `yaml:"sinr_adequate" validate:"gte=-20,lte=40"`
}

// CallDropConfig bounds the drop-rate detector.
type CallDropConfig struct {
	DropRate         float64 `yaml:"drop_rate" validate:"gt=0,lte=1"`
	SevereDropRate   float64 `yaml:"severe_drop_rate" validate:"gt=0,lte=1"`
	MinCalls         int     `yaml:"min_calls" validate:"gt=0"`
	WeakRSRP         float64 `yaml:"weak_rsrp" validate:"lt=0,gte=-140"`
	LowSINR          float64 `yaml:"low_sinr" validate:"gte=-20,lte=40"`
	AdequateRSRPForI float64 `yaml:"adequate_rsrp_for_interference" validate:"lt=0,gte=-140"`
}

// OverloadConfig bounds the congested-cell detector.
type OverloadConfig struct {
	// MinShare is the fraction of all samples a cell must carry before it
	// is considered for congestion.
	MinShare     float64 `yaml:"min_share" validate:"gt=0,lte=1"`
	DLFloorKbps  float64 `yaml:"dl_floor_kbps" validate:"gt=0"`
	RSRPAdequate float64 `yaml:"rsrp_adequate" validate:"lt=0,gte=-140"`
	SINRAdequate float64 `yaml:"sinr_adequate" validate:"gte=-20,lte=40"`
	MinSamples   int     `yaml:"min_samples" validate:"gt=0"`
}

// ParameterConfig bounds the ping-pong and missing-event detectors.
type ParameterConfig struct {
	PingPongWindow int `yaml:"ping_pong_window_s" validate:"gt=0"`
	MinOccurrences int `yaml:"min_occurrences" validate:"gt=0"`
}

// QoSConfig bounds the in-call quality and throughput-jitter detectors.
type QoSConfig struct {
	QualityFloorSINR float64 `yaml:"quality_floor_sinr" validate:"gte=-20,lte=40"`
	MinRunLength     int     `yaml:"min_run_length" validate:"gt=0"`
	// JitterCoV is the maximum tolerated coefficient of variation of DL
	// throughput before the bearer is flagged.
	JitterCoV  float64 `yaml:"jitter_cov" validate:"gt=0"`
	MinSamples int     `yaml:"min_samples" validate:"gt=0"`
}

// DefaultConfig returns the documented default thresholds.
func DefaultConfig() Config {
	return Config{
		Coverage: CoverageConfig{
			RSRPThreshold: -105,
			RSRQThreshold: -15,
			HoleDepth:     10,
			MinRunLength:  5,
			MergeGap:      3,
		},
		Interference: InterferenceConfig{
			SINRThreshold:    5,
			RSRPAdequate:     -95,
			MinRunLength:     5,
			PilotNeighborMin: 4,
		},
		Handover: HandoverConfig{
			FailureRatio:    0.10,
			MinAttempts:     10,
			WeakServingRSRP: -100,
		},
		Throughput: ThroughputConfig{
			DLFloorKbps:  2000,
			ULFloorKbps:  500,
			MinRunLength: 5,
			RSRPAdequate: -95,
			SINRAdequate: 5,
		},
		CallDrop: CallDropConfig{
			DropRate:         0.02,
			SevereDropRate:   0.05,
			MinCalls:         10,
			WeakRSRP:         -105,
			LowSINR:          5,
			AdequateRSRPForI: -95,
		},
		Overload: OverloadConfig{
			MinShare:     0.20,
			DLFloorKbps:  2000,
			RSRPAdequate: -95,
			SINRAdequate: 5,
			MinSamples:   20,
		},
		Parameter: ParameterConfig{
			PingPongWindow: 10,
			MinOccurrences: 3,
		},
		QoS: QoSConfig{
			QualityFloorSINR: 0,
			MinRunLength:     5,
			JitterCoV:        0.75,
			MinSamples:       20,
		},
	}
}

var validate = validator.New()

// Validate rejects malformed threshold sets before any analysis starts.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("invalid analysis configuration", err)
	}
	return nil
}
