package types

import (
	"time"

	"github.com/google/uuid"
)

type FarmerPreferences struct {
	IrrigationThreshold float64 `json:"irrigation_threshold"`
	TemperatureAlert    float64 `json:"temperature_alert"`
	RainDelayIrrigation bool    `json:"rain_delay_irrigation"`
	DiseaseWarning      bool    `json:"disease_warning"`
}

// DefaultPreferences mirrors what a freshly created farmer profile carries.
func DefaultPreferences() FarmerPreferences {
	return FarmerPreferences{
		IrrigationThreshold: 40,
		TemperatureAlert:    38,
		RainDelayIrrigation: true,
		DiseaseWarning:      true,
	}
}

type Crop struct {
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	AreaHa          float64   `json:"area"`
	PlantingDate    time.Time `json:"planting_date,omitzero"`
	ExpectedHarvest time.Time `json:"expected_harvest,omitzero"`
}

type Plot struct {
	Name            string    `json:"name"`
	AreaHa          float64   `json:"area"`
	SoilType        string    `json:"soil_type,omitempty"`
	Coordinates     *Location `json:"coordinates,omitempty"`
	AssignedSensors []string  `json:"assigned_sensors"`
}

type FarmerProfile struct {
	FarmerID    uuid.UUID         `json:"farmer_id"`
	FarmName    string            `json:"farm_name"`
	Location    *Location         `json:"location,omitempty"`
	MainCrops   []Crop            `json:"main_crops"`
	Plots       []Plot            `json:"plots"`
	Preferences FarmerPreferences `json:"recommendation_settings"`
}

// PrimaryCrop is the crop type the recommendations are tuned for.
func (f *FarmerProfile) PrimaryCrop() string {
	if f == nil || len(f.MainCrops) == 0 {
		return ""
	}
	return f.MainCrops[0].Type
}

// SensorIDs lists the sensors assigned to the farmer's plots, without
// duplicates, in plot order.
func (f *FarmerProfile) SensorIDs() []string {
	if f == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range f.Plots {
		for _, id := range p.AssignedSensors {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// LocationFor returns the coordinates of the plot a sensor is assigned
// to, or the farm location.
func (f *FarmerProfile) LocationFor(sensorID string) *Location {
	if f == nil {
		return nil
	}
	for _, p := range f.Plots {
		for _, id := range p.AssignedSensors {
			if id == sensorID && p.Coordinates != nil {
				return p.Coordinates
			}
		}
	}
	return f.Location
}
