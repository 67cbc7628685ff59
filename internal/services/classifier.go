package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"

	"studypath-backend/internal/models"
)

// ClusterModel is the offline-trained clustering artifact: a standard scaler
// plus labeled cluster centers over (score_percent, avg_time_per_question).
type ClusterModel struct {
	Version      string      `json:"version"`
	FeatureNames []string    `json:"feature_names"`
	ScalerMean   []float64   `json:"scaler_mean"`
	ScalerStd    []float64   `json:"scaler_std"`
	Centers      [][]float64 `json:"centers"`
	Labels       []string    `json:"labels"`
}

func (m *ClusterModel) validate() error {
	if len(m.ScalerMean) != 2 || len(m.ScalerStd) != 2 {
		return fmt.Errorf("scaler must cover exactly 2 features, got mean=%d std=%d", len(m.ScalerMean), len(m.ScalerStd))
	}
	if len(m.Centers) == 0 || len(m.Centers) != len(m.Labels) {
		return fmt.Errorf("centers (%d) and labels (%d) must be non-empty and aligned", len(m.Centers), len(m.Labels))
	}
	for i, c := range m.Centers {
		if len(c) != 2 {
			return fmt.Errorf("center %d has %d features, want 2", i, len(c))
		}
	}
	for i, std := range m.ScalerStd {
		if std == 0 {
			return fmt.Errorf("scaler std for feature %d is zero", i)
		}
	}
	return nil
}

// Classifier assigns a learner profile from quiz behavior. When the model
// artifact is missing it degrades to rule thresholds and flags the result.
type Classifier struct {
	model *ClusterModel
}

// NewClassifier loads the model artifact. A missing file is not an error;
// the classifier just runs rule-based.
func NewClassifier(modelPath string) *Classifier {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		log.Printf("Cluster model not available at %s, using rule-based classification: %v", modelPath, err)
		return &Classifier{}
	}

	model := &ClusterModel{}
	if err := json.Unmarshal(data, model); err != nil {
		log.Printf("Cluster model at %s is malformed, using rule-based classification: %v", modelPath, err)
		return &Classifier{}
	}
	if err := model.validate(); err != nil {
		log.Printf("Cluster model at %s failed validation, using rule-based classification: %v", modelPath, err)
		return &Classifier{}
	}

	log.Printf("Cluster model loaded (version %s, %d clusters)", model.Version, len(model.Centers))
	return &Classifier{model: model}
}

func (c *Classifier) ModelLoaded() bool {
	return c.model != nil
}

// Classification is one profile assignment with its provenance.
type Classification struct {
	Profile      string
	Confidence   float64
	FallbackMode bool
}

// Classify assigns a learner profile. percentage is the overall score 0-100,
// avgTimePerQuestion is seconds per answer, rushedPercentage and avgTimeRatio
// feed the rule path.
func (c *Classifier) Classify(percentage, avgTimePerQuestion, rushedPercentage, avgTimeRatio float64) Classification {
	if c.model == nil {
		return Classification{
			Profile:      classifyByRules(percentage, rushedPercentage, avgTimeRatio),
			Confidence:   0.5,
			FallbackMode: true,
		}
	}

	scaled := [2]float64{
		(percentage - c.model.ScalerMean[0]) / c.model.ScalerStd[0],
		(avgTimePerQuestion - c.model.ScalerMean[1]) / c.model.ScalerStd[1],
	}

	best := 0
	bestDist := math.Inf(1)
	for i, center := range c.model.Centers {
		dx := scaled[0] - center[0]
		dy := scaled[1] - center[1]
		dist := math.Sqrt(dx*dx + dy*dy)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	// Heuristic normalization, not a probability.
	confidence := 1 - bestDist/3
	if confidence < 0 {
		confidence = 0
	}

	return Classification{
		Profile:    c.model.Labels[best],
		Confidence: math.Round(confidence*100) / 100,
	}
}

// classifyByRules is the deterministic threshold classifier. Order matters:
// achievement overrides rushedness.
func classifyByRules(percentage, rushedPercentage, avgTimeRatio float64) string {
	if percentage >= 70 {
		return models.ProfileHighAchiever
	}
	if rushedPercentage > 40 || avgTimeRatio < 0.6 {
		return models.ProfileRushed
	}
	return models.ProfileStruggling
}
