package model

import "time"

// Detector identifies one of the fixed anomaly detectors.
type Detector string

const (
	DetectorRateSpike        Detector = "D1_rate_spike"
	DetectorRareDomain       Detector = "D2_rare_domain"
	DetectorErrorRatio       Detector = "D3_error_ratio"
	DetectorEgressOutlier    Detector = "D4_egress_outlier"
	DetectorImpossibleTravel Detector = "D5_impossible_travel"
)

// Detectors lists all detectors in run order.
var Detectors = []Detector{
	DetectorRateSpike,
	DetectorRareDomain,
	DetectorErrorRatio,
	DetectorEgressOutlier,
	DetectorImpossibleTravel,
}

// Anomaly is one finding emitted by a detector for an upload. Anomalies are
// created in bulk after deleting all prior anomalies for the upload, so
// detection is idempotent and re-runnable.
type Anomaly struct {
	ID         int64
	UploadID   string
	Detector   Detector
	Reason     string
	Confidence float64 // in [0,1], not a calibrated probability
	EventID    *int64  // representative event, when one exists
	CreatedAt  time.Time
}
