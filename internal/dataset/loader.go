package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/alphadesk/tradedash/internal/telemetry"
	"github.com/alphadesk/tradedash/pkg/logger"
)

// Dataset is a loaded and parsed CSV
type Dataset struct {
	Table    *Table    `json:"table"`
	Kind     string    `json:"kind"`
	Label    string    `json:"label"`
	Location string    `json:"location"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Loader fetches and parses datasets from any Source
// ⭐ SSOT: CSV 로딩은 여기서만
type Loader struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewLoader creates a new loader
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{logger: log, now: time.Now}
}

// Load fetches src and parses it. Fetch errors are returned unchanged so
// callers can classify them with errors.Is.
func (l *Loader) Load(ctx context.Context, src Source) (*Dataset, error) {
	log := l.logger.WithFields(map[string]interface{}{
		"source":   src.Kind(),
		"location": src.Location(),
	})

	payload, err := src.Fetch(ctx)
	if err != nil {
		telemetry.DatasetLoads.WithLabelValues(src.Kind(), "error").Inc()
		log.WithError(err).Error("Dataset fetch failed")
		return nil, err
	}

	table, err := ParseBytes(payload.Data)
	if err != nil {
		telemetry.DatasetLoads.WithLabelValues(src.Kind(), "error").Inc()
		log.WithError(err).Error("Dataset parse failed")
		return nil, fmt.Errorf("parse %s: %w", payload.Location, err)
	}

	telemetry.DatasetLoads.WithLabelValues(src.Kind(), "ok").Inc()
	log.WithFields(map[string]interface{}{
		"rows":    table.Len(),
		"columns": len(table.Columns),
	}).Info("Dataset loaded")

	return &Dataset{
		Table:    table,
		Kind:     src.Kind(),
		Label:    payload.Label,
		Location: payload.Location,
		LoadedAt: l.now(),
	}, nil
}
