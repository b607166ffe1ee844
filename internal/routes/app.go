package routes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/advisor"
	"github.com/ntentasd/nostradamus-advisor/internal/crops"
	"github.com/ntentasd/nostradamus-advisor/internal/ingest"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/rs/zerolog"
)

type Ingester interface {
	Ingest(ctx context.Context, r types.Reading, source string) (*ingest.Result, error)
}

type Advisor interface {
	Analyze(ctx context.Context, sensorID string, farmerID *uuid.UUID) (*advisor.Analysis, error)
	Report(ctx context.Context, farmerID uuid.UUID, from, to time.Time) (*advisor.Report, error)
}

type ReadingSource interface {
	GetLastReadings(ctx context.Context, sensorID string, n int) ([]types.Reading, error)
	GetReadings(ctx context.Context, sensorID string, from, to time.Time) ([]types.Reading, error)
}

type ProfileStore interface {
	GetFarmerProfile(ctx context.Context, farmerID uuid.UUID) (*types.FarmerProfile, error)
	PutFarmerProfile(ctx context.Context, p types.FarmerProfile) error
}

type AlertStore interface {
	ListAlerts(ctx context.Context, sensorID string, unresolvedOnly bool) ([]types.Alert, error)
	ResolveAlert(ctx context.Context, sensorID string, alertID uuid.UUID, at time.Time) error
}

type App struct {
	Ingestor Ingester
	Advisor  Advisor
	Readings ReadingSource
	Alerts   AlertStore
	Profiles ProfileStore
	Crops    *crops.KnowledgeBase
	logger   zerolog.Logger
}

func New(ing Ingester, adv Advisor, readings ReadingSource, alerts AlertStore, profiles ProfileStore, kb *crops.KnowledgeBase, logger zerolog.Logger) *App {
	return &App{
		Ingestor: ing,
		Advisor:  adv,
		Readings: readings,
		Alerts:   alerts,
		Profiles: profiles,
		Crops:    kb,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}
