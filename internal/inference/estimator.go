// Package inference は学習済み回帰モデルによる収量推定を提供する。
//
// 入力パラメータは学習時と同じ順序の7要素の特徴量ベクトルに変換され、
// カテゴリ値はモデル成果物に含まれるカテゴリ一覧のインデックスで符号化される。
package inference

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// FeatureCount は特徴量ベクトルの要素数。
const FeatureCount = 7

// カテゴリ列の名前。モデル成果物のcategoriesのキーと一致する。
const (
	ColumnSoilType       = "soil_type"
	ColumnSeedVariety    = "seed_variety"
	ColumnFertilizerType = "fertilizer_type"
)

var (
	// ErrUnknownCategory は学習時に存在しなかったカテゴリ値に対して返される。
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidEstimate はモデルが有限でない推定値を返した場合に返される。
	ErrInvalidEstimate = errors.New("model returned a non-finite estimate")
)

// Estimator は入力パラメータから収量を推定する。
// 実装は並行呼び出しに対して安全でなければならない。
type Estimator interface {
	Estimate(ctx context.Context, input model.PredictionInput) (float64, error)
}

// Features は学習時の順序に並べた特徴量ベクトル。
// (土壌, pH, 降水量, 気温, 湿度, 品種, 肥料)
type Features [FeatureCount]float64

// Encoder はカテゴリ値を学習時と同じ整数ラベルに変換する。
// 各列のラベルはソート済みカテゴリ一覧内のインデックス。
type Encoder struct {
	labels map[string]map[string]int
}

// NewEncoder は列名ごとのカテゴリ一覧からEncoderを生成する。
// 3つのカテゴリ列すべてに1件以上のカテゴリが必要。
func NewEncoder(categories map[string][]string) (*Encoder, error) {
	labels := make(map[string]map[string]int, 3)
	for _, column := range []string{ColumnSoilType, ColumnSeedVariety, ColumnFertilizerType} {
		values := categories[column]
		if len(values) == 0 {
			return nil, fmt.Errorf("categories for %s are empty", column)
		}

		sorted := make([]string, len(values))
		copy(sorted, values)
		sort.Strings(sorted)

		index := make(map[string]int, len(sorted))
		for i, v := range sorted {
			key := normalizeCategory(v)
			if key == "" {
				return nil, fmt.Errorf("categories for %s contain an empty value", column)
			}
			if _, dup := index[key]; dup {
				return nil, fmt.Errorf("categories for %s contain duplicate value %q", column, v)
			}
			index[key] = i
		}
		labels[column] = index
	}
	return &Encoder{labels: labels}, nil
}

// Encode は列columnのカテゴリ値valueのラベルを返す。
func (e *Encoder) Encode(column, value string) (int, error) {
	index, ok := e.labels[column]
	if !ok {
		return 0, fmt.Errorf("%w: column %s is not categorical", ErrUnknownCategory, column)
	}
	label, ok := index[normalizeCategory(value)]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownCategory, column, value)
	}
	return label, nil
}

// FeatureVector は入力パラメータを特徴量ベクトルに変換する。
func FeatureVector(input model.PredictionInput, encoder *Encoder) (Features, error) {
	soil, err := encoder.Encode(ColumnSoilType, input.SoilType)
	if err != nil {
		return Features{}, err
	}
	seed, err := encoder.Encode(ColumnSeedVariety, input.SeedVariety)
	if err != nil {
		return Features{}, err
	}
	fertilizer, err := encoder.Encode(ColumnFertilizerType, input.FertilizerType)
	if err != nil {
		return Features{}, err
	}

	return Features{
		float64(soil),
		input.PH,
		input.RainfallMM,
		input.TemperatureC,
		input.HumidityPercent,
		float64(seed),
		float64(fertilizer),
	}, nil
}

func normalizeCategory(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func checkFinite(v float64) (float64, error) {
	if !isFinite(v) {
		return 0, ErrInvalidEstimate
	}
	return v, nil
}
