package advisor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/priority"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"golang.org/x/sync/errgroup"
)

type Period struct {
	From time.Time `json:"start_date"`
	To   time.Time `json:"end_date"`
}

type FarmerInfo struct {
	Name     string          `json:"name"`
	Location *types.Location `json:"location,omitempty"`
	Crops    []types.Crop    `json:"crops"`
}

type SensorReport struct {
	SensorID        string                 `json:"sensor_id"`
	Readings        int                    `json:"readings"`
	Recommendations []types.Recommendation `json:"analysis"`
	Summary         Summary                `json:"summary"`
}

type Statistics struct {
	TotalReadings        int    `json:"total_readings"`
	AvgHealthScore       int    `json:"avg_health_score"`
	CriticalAlerts       int    `json:"critical_alerts"`
	IrrigationEvents     int    `json:"irrigation_events"`
	EstimatedYieldImpact string `json:"estimated_yield_impact"`
}

type Report struct {
	Period          Period                 `json:"period"`
	Farmer          FarmerInfo             `json:"farmer"`
	Sensors         []SensorReport         `json:"sensors"`
	Statistics      Statistics             `json:"statistics"`
	Recommendations []types.Recommendation `json:"recommendations"`
	GeneratedAt     time.Time              `json:"generated_at"`
}

func (a *Advisor) concurrency() int {
	if a.Concurrency > 0 {
		return a.Concurrency
	}
	return 4
}

// Report analyses every sensor on the farmer's plots that reported between
// from and to.
func (a *Advisor) Report(ctx context.Context, farmerID uuid.UUID, from, to time.Time) (*Report, error) {
	if a.Profiles == nil {
		return nil, fmt.Errorf("farmer report: no profile store")
	}
	profile, err := a.Profiles.GetFarmerProfile(ctx, farmerID)
	if err != nil {
		return nil, fmt.Errorf("farmer report: %w", err)
	}

	ids := profile.SensorIDs()
	results := make([]*SensorReport, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for i, id := range ids {
		g.Go(func() error {
			readings, err := a.Readings.GetReadings(gctx, id, from, to)
			if err != nil {
				return fmt.Errorf("sensor %s: %w", id, err)
			}
			if len(readings) == 0 {
				return nil
			}
			res, err := a.Analyze(gctx, id, &farmerID)
			if err != nil {
				return fmt.Errorf("sensor %s: %w", id, err)
			}
			results[i] = &SensorReport{
				SensorID:        id,
				Readings:        len(readings),
				Recommendations: res.Recommendations,
				Summary:         res.Summary,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("farmer report: %w", err)
	}

	sensors := make([]SensorReport, 0, len(results))
	var all []types.Recommendation
	for _, r := range results {
		if r == nil {
			continue
		}
		sensors = append(sensors, *r)
		all = append(all, r.Recommendations...)
	}

	recs := priority.AggregateByCategory(all)

	return &Report{
		Period: Period{From: from, To: to},
		Farmer: FarmerInfo{
			Name:     profile.FarmName,
			Location: profile.Location,
			Crops:    profile.MainCrops,
		},
		Sensors:         sensors,
		Statistics:      stats(sensors),
		Recommendations: recs,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func stats(sensors []SensorReport) Statistics {
	var s Statistics
	total := 0
	for _, sr := range sensors {
		s.TotalReadings += sr.Readings
		total += sr.Summary.HealthScore
		for _, r := range sr.Recommendations {
			if r.Type == types.SeverityCritical {
				s.CriticalAlerts++
			}
			if r.Category == types.CategoryIrrigation {
				s.IrrigationEvents++
			}
		}
	}
	if len(sensors) > 0 {
		s.AvgHealthScore = int(math.Round(float64(total) / float64(len(sensors))))
	}
	s.EstimatedYieldImpact = YieldImpact(s.AvgHealthScore)
	return s
}

// YieldImpact is the rough yield change expected at an average health score.
func YieldImpact(avgHealthScore int) string {
	switch {
	case avgHealthScore >= 80:
		return "+10-15%"
	case avgHealthScore >= 60:
		return "+5-10%"
	case avgHealthScore >= 40:
		return "0-5%"
	default:
		return "-5-10%"
	}
}
