package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/internal/db"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/ntentasd/nostradamus-advisor/pkg/utils"
)

const (
	defaultReadingsLimit = 20
	maxReadingsLimit     = 500
	defaultReportPeriod  = 7 * 24 * time.Hour
	maxAggregateWindow   = 7 * 24 * time.Hour
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state": "healthy",
	})
}

func (app *App) postReadingHandler(w http.ResponseWriter, r *http.Request) {
	var reading types.Reading
	if err := utils.DecodeJSON(r, &reading); err != nil {
		utils.ReplyBadRequest(w, err.Error())
		return
	}

	res, err := app.Ingestor.Ingest(r.Context(), reading, "http")
	if err != nil {
		if errors.Is(err, types.ErrInvalidReading) {
			utils.ReplyBadRequest(w, err.Error())
			return
		}
		app.logger.Error().Err(err).Str("sensor_id", reading.SensorID).Msg("ingest failed")
		utils.ReplyInternalServerError(w, "failed to ingest reading")
		return
	}

	utils.ReplyJSON(w, http.StatusCreated, utils.Body{
		"data": res,
	})
}

func (app *App) readingsHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")

	limit := defaultReadingsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.ReplyBadRequest(w, "invalid limit")
			return
		}
		limit = min(n, maxReadingsLimit)
	}

	readings, err := app.Readings.GetLastReadings(r.Context(), sensorID, limit)
	if err != nil {
		app.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to load readings")
		utils.ReplyInternalServerError(w, "failed to load readings")
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": readings,
	})
}

// aggregatesHandler summarises every metric, or the one named by ?metric=,
// over the trailing window (default 1h).
func (app *App) aggregatesHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")

	window := time.Hour
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 || d > maxAggregateWindow {
			utils.ReplyBadRequest(w, "invalid window")
			return
		}
		window = d
	}

	selected := []types.Metric{types.MetricHumidity, types.MetricTemperature, types.MetricSoilPH, types.MetricBattery}
	if s := r.URL.Query().Get("metric"); s != "" {
		m, err := types.ToMetric(s)
		if err != nil {
			utils.ReplyBadRequest(w, "invalid metric")
			return
		}
		selected = []types.Metric{m}
	}

	now := time.Now().UTC()
	readings, err := app.Readings.GetReadings(r.Context(), sensorID, now.Add(-window), now)
	if err != nil {
		app.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to load readings")
		utils.ReplyInternalServerError(w, "failed to load readings")
		return
	}

	if len(readings) == 0 {
		utils.ReplyNotFound(w, "no readings found")
		return
	}

	aggs := make([]types.Aggregate, 0, len(selected))
	for _, m := range selected {
		if agg := types.NewAggregate(readings, m, now); agg.Count > 0 {
			aggs = append(aggs, agg)
		}
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data":   aggs,
		"window": window.String(),
	})
}

// farmerParam parses the optional farmer_id query parameter.
func farmerParam(r *http.Request) (*uuid.UUID, error) {
	s := r.URL.Query().Get("farmer_id")
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (app *App) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")
	farmerID, err := farmerParam(r)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid farmer_id")
		return
	}

	res, err := app.Advisor.Analyze(r.Context(), sensorID, farmerID)
	if err != nil {
		app.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("analysis failed")
		utils.ReplyInternalServerError(w, "analysis failed")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": res,
	})
}

func (app *App) healthScoreHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")
	farmerID, err := farmerParam(r)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid farmer_id")
		return
	}

	res, err := app.Advisor.Analyze(r.Context(), sensorID, farmerID)
	if err != nil {
		app.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("analysis failed")
		utils.ReplyInternalServerError(w, "analysis failed")
		return
	}
	if res.Summary.NoData {
		utils.ReplyNotFound(w, "no readings for sensor")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": res.Summary,
	})
}

func (app *App) alertsHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")
	all := r.URL.Query().Get("all") == "true"

	alerts, err := app.Alerts.ListAlerts(r.Context(), sensorID, !all)
	if err != nil {
		app.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to list alerts")
		utils.ReplyInternalServerError(w, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []types.Alert{}
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": alerts,
	})
}

func (app *App) resolveAlertHandler(w http.ResponseWriter, r *http.Request) {
	sensorID := r.PathValue("id")
	alertID, err := uuid.Parse(r.PathValue("alert_id"))
	if err != nil {
		utils.ReplyBadRequest(w, "invalid alert_id")
		return
	}

	at := time.Now().UTC()
	if err := app.Alerts.ResolveAlert(r.Context(), sensorID, alertID, at); err != nil {
		if errors.Is(err, db.ErrAlertNotFound) {
			utils.ReplyNotFound(w, "alert not found")
			return
		}
		app.logger.Error().Err(err).Str("alert_id", alertID.String()).Msg("failed to resolve alert")
		utils.ReplyInternalServerError(w, "failed to resolve alert")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": utils.Body{
			"alert_id":  alertID,
			"sensor_id": sensorID,
			"resolved":  true,
		},
	})
}

func (app *App) reportHandler(w http.ResponseWriter, r *http.Request) {
	farmerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.ReplyBadRequest(w, "invalid farmer id")
		return
	}

	to := time.Now().UTC()
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = time.Parse(time.RFC3339, s); err != nil {
			utils.ReplyBadRequest(w, "invalid to, expected RFC3339")
			return
		}
	}
	from := to.Add(-defaultReportPeriod)
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			utils.ReplyBadRequest(w, "invalid from, expected RFC3339")
			return
		}
	}
	if from.After(to) {
		utils.ReplyBadRequest(w, "from is after to")
		return
	}

	report, err := app.Advisor.Report(r.Context(), farmerID, from, to)
	if err != nil {
		if errors.Is(err, db.ErrProfileNotFound) {
			utils.ReplyNotFound(w, "farmer not found")
			return
		}
		app.logger.Error().Err(err).Str("farmer_id", farmerID.String()).Msg("report failed")
		utils.ReplyInternalServerError(w, "report failed")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": report,
	})
}

func (app *App) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	farmerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.ReplyBadRequest(w, "invalid farmer id")
		return
	}

	p, err := app.Profiles.GetFarmerProfile(r.Context(), farmerID)
	if err != nil {
		if errors.Is(err, db.ErrProfileNotFound) {
			utils.ReplyNotFound(w, "farmer not found")
			return
		}
		app.logger.Error().Err(err).Str("farmer_id", farmerID.String()).Msg("failed to load profile")
		utils.ReplyInternalServerError(w, "failed to load profile")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": p,
	})
}

// putProfileHandler creates or replaces a farmer profile. Missing
// recommendation settings get the defaults.
func (app *App) putProfileHandler(w http.ResponseWriter, r *http.Request) {
	farmerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.ReplyBadRequest(w, "invalid farmer id")
		return
	}

	p := types.FarmerProfile{Preferences: types.DefaultPreferences()}
	if err := utils.DecodeJSON(r, &p); err != nil {
		utils.ReplyBadRequest(w, err.Error())
		return
	}
	p.FarmerID = farmerID

	if err := app.Profiles.PutFarmerProfile(r.Context(), p); err != nil {
		app.logger.Error().Err(err).Str("farmer_id", farmerID.String()).Msg("failed to store profile")
		utils.ReplyInternalServerError(w, "failed to store profile")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": p,
	})
}

func (app *App) cropsHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": app.Crops.Profiles(),
	})
}
