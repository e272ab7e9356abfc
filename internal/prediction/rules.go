package prediction

import "github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"

// 確度の閾値。推定収量がこの値を超えると一段上の確度になる。
const (
	highYieldThreshold     = 8.0
	moderateYieldThreshold = 5.0
)

// 確度ごとの推奨文。
const (
	RecommendationHigh     = "Continue current practices, yield looks excellent."
	RecommendationModerate = "Consider soil enrichment for better results."
	RecommendationLow      = "Soil amendment and better irrigation needed."
)

// Recommend は推定収量から確度と推奨文を導出する。
//
//	yield > 8      → high
//	5 < yield <= 8 → moderate
//	yield <= 5     → low
func Recommend(yield float64) (model.Confidence, string) {
	switch {
	case yield > highYieldThreshold:
		return model.ConfidenceHigh, RecommendationHigh
	case yield > moderateYieldThreshold:
		return model.ConfidenceModerate, RecommendationModerate
	default:
		return model.ConfidenceLow, RecommendationLow
	}
}
