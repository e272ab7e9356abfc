package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/model"
)

// PostgresPredictionRepo はPostgreSQLを使用した推定記録リポジトリ。
type PostgresPredictionRepo struct {
	db *sql.DB
}

// NewPostgresPredictionRepo はPostgresPredictionRepoを生成する。
func NewPostgresPredictionRepo(db *sql.DB) *PostgresPredictionRepo {
	return &PostgresPredictionRepo{db: db}
}

// Create は推定記録を1件作成する。
// 単一のINSERT文のため、記録は全体が見えるか全く見えないかのどちらかになる。
func (r *PostgresPredictionRepo) Create(ctx context.Context, p *model.Prediction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO predictions (
			id, user_id, soil_type, ph, rainfall_mm, temperature_c, humidity_percent,
			seed_variety, fertilizer_type, planting_date,
			predicted_yield, confidence, recommendation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.UserID, p.SoilType, p.PH, p.RainfallMM, p.TemperatureC, p.HumidityPercent,
		p.SeedVariety, p.FertilizerType, p.PlantingDate,
		p.PredictedYield, string(p.Confidence), p.Recommendation, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーが所有する推定記録をcreated_at降順で返す。
func (r *PostgresPredictionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Prediction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, soil_type, ph, rainfall_mm, temperature_c, humidity_percent,
			seed_variety, fertilizer_type, planting_date,
			predicted_yield, confidence, recommendation, created_at
		 FROM predictions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	predictions := make([]*model.Prediction, 0)
	for rows.Next() {
		p := &model.Prediction{}
		var confidence string
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.SoilType, &p.PH, &p.RainfallMM, &p.TemperatureC, &p.HumidityPercent,
			&p.SeedVariety, &p.FertilizerType, &p.PlantingDate,
			&p.PredictedYield, &confidence, &p.Recommendation, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.Confidence = model.Confidence(confidence)
		if !p.Confidence.IsValid() {
			return nil, fmt.Errorf("prediction %s has unknown confidence %q", p.ID, confidence)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate predictions: %w", err)
	}

	return predictions, nil
}

// compile-time interface check
var _ PredictionRepository = (*PostgresPredictionRepo)(nil)
