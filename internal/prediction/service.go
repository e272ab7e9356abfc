// Package prediction は収量推定の実行と推定履歴の管理を提供する。
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/inference"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/metrics"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/repository"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/security"
)

// maxPlantingDateLength はplanting_date列（VARCHAR(32)）の最大文字数。
const maxPlantingDateLength = 32

// Service は収量推定に関するビジネスロジックを提供する。
type Service struct {
	predictions repository.PredictionRepository
	estimator   inference.Estimator
	sanitizer   security.TextSanitizer
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。
// sanitizerがnilの場合はタグを全て除去するサニタイザを使い、collectorがnilの場合はメトリクスを記録しない。
func NewService(
	predictions repository.PredictionRepository,
	estimator inference.Estimator,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Service{
		predictions: predictions,
		estimator:   estimator,
		sanitizer:   sanitizer,
		metrics:     collector,
		now:         time.Now,
	}
}

// Submit は入力パラメータから収量を推定し、確度と推奨文を付けて保存する。
// 入力値と導出値は1件のレコードとして同時に書き込まれる。
func (s *Service) Submit(ctx context.Context, userID string, input model.PredictionInput) (*model.Prediction, error) {
	plantingDate, err := s.checkPlantingDate(input.PlantingDate)
	if err != nil {
		return nil, err
	}
	input.PlantingDate = plantingDate

	start := time.Now()
	yield, err := s.estimator.Estimate(ctx, input)
	s.metrics.RecordInferenceLatency(time.Since(start))
	if err != nil {
		return nil, s.handleEstimateError(err)
	}

	confidence, recommendation := Recommend(yield)

	prediction := &model.Prediction{
		ID:              uuid.New().String(),
		PredictionInput: input,
		PredictedYield:  yield,
		Confidence:      confidence,
		Recommendation:  recommendation,
		UserID:          userID,
		CreatedAt:       s.now(),
	}

	if err := s.predictions.Create(ctx, prediction); err != nil {
		return nil, fmt.Errorf("failed to store prediction: %w", err)
	}

	s.metrics.RecordPrediction(string(confidence))
	slog.Info("prediction stored",
		slog.String("prediction_id", prediction.ID),
		slog.String("user_id", userID),
		slog.Float64("predicted_yield", yield),
		slog.String("confidence", string(confidence)),
	)

	return prediction, nil
}

// List は指定ユーザーが所有する推定記録を新しい順に返す。
// 0件の場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Prediction, error) {
	predictions, err := s.predictions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	if predictions == nil {
		predictions = []*model.Prediction{}
	}
	return predictions, nil
}

// checkPlantingDate は自由入力のplanting_dateを検証し、前後の空白を除いた値を返す。
// マークアップを含む値は書き換えずに拒否する。
func (s *Service) checkPlantingDate(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", model.NewValidationError("planting_date must not be empty")
	}
	if s.sanitizer.Sanitize(value) != value {
		return "", model.NewValidationError("planting_date must not contain markup")
	}
	if utf8.RuneCountInString(value) > maxPlantingDateLength {
		return "", model.NewValidationError(
			fmt.Sprintf("planting_date must be at most %d characters", maxPlantingDateLength))
	}
	return value, nil
}

// handleEstimateError は推定エラーを分類する。
// 入力起因のエラーは検証エラーとして返し、それ以外は内部エラーとして扱う。
func (s *Service) handleEstimateError(err error) error {
	switch {
	case errors.Is(err, inference.ErrUnknownCategory):
		s.metrics.RecordInferenceFailure("invalid_input")
		return model.NewValidationError(err.Error())
	case errors.Is(err, inference.ErrModelUnavailable):
		s.metrics.RecordInferenceFailure("unavailable")
	default:
		s.metrics.RecordInferenceFailure("error")
	}
	return fmt.Errorf("failed to estimate yield: %w", err)
}
