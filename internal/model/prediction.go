package model

import "time"

// Confidence は収量推定値から導出される確度の段階を表す。
type Confidence string

const (
	// ConfidenceLow は推定収量が5以下であることを示す。
	ConfidenceLow Confidence = "low"
	// ConfidenceModerate は推定収量が5超8以下であることを示す。
	ConfidenceModerate Confidence = "moderate"
	// ConfidenceHigh は推定収量が8を超えることを示す。
	ConfidenceHigh Confidence = "high"
)

// IsValid は確度が定義済みの値かどうかを返す。
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceLow, ConfidenceModerate, ConfidenceHigh:
		return true
	}
	return false
}

// PredictionInput は収量推定に使う入力パラメータを表す。
// 特徴量の並び順は学習時と同じ（土壌, pH, 降水量, 気温, 湿度, 品種, 肥料）。
type PredictionInput struct {
	SoilType        string
	PH              float64
	RainfallMM      float64
	TemperatureC    float64
	HumidityPercent float64
	SeedVariety     string
	FertilizerType  string
	PlantingDate    string
}

// Prediction は永続化された収量推定の記録を表す。
// 入力値と導出値は同一のINSERTでまとめて書き込まれる。
type Prediction struct {
	ID string
	PredictionInput
	PredictedYield float64
	Confidence     Confidence
	Recommendation string
	UserID         string
	CreatedAt      time.Time
}
