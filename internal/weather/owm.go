package weather

import (
	"math"
	"time"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// OpenWeatherMap 2.5 payloads, only the fields we read.

type owmCurrent struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
}

type owmForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Pop  float64 `json:"pop"`
		Rain struct {
			ThreeHours float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
	City struct {
		Timezone int `json:"timezone"`
	} `json:"city"`
}

const forecastDays = 5

func (o owmCurrent) snapshot() types.WeatherSnapshot {
	s := types.WeatherSnapshot{
		Temperature:   math.Round(o.Main.Temp),
		FeelsLike:     math.Round(o.Main.FeelsLike),
		Humidity:      o.Main.Humidity,
		Pressure:      o.Main.Pressure,
		WindSpeed:     o.Wind.Speed,
		WindDirection: o.Wind.Deg,
		Clouds:        o.Clouds.All,
	}
	if len(o.Weather) > 0 {
		s.Description = o.Weather[0].Description
	}
	return s
}

// days folds the 3-hourly forecast into calendar days in the location's
// timezone, keeping at most forecastDays.
func (o owmForecast) days() []types.ForecastDay {
	loc := time.FixedZone("", o.City.Timezone)

	type acc struct {
		date            string
		label           string
		tmin, tmax, pop float64
		rain            float64
	}
	var order []*acc
	byDate := make(map[string]*acc)

	for _, item := range o.List {
		t := time.Unix(item.Dt, 0).In(loc)
		key := t.Format(time.DateOnly)

		a, ok := byDate[key]
		if !ok {
			if len(order) == forecastDays {
				continue
			}
			a = &acc{
				date:  key,
				label: t.Weekday().String()[:3],
				tmin:  math.Inf(1),
				tmax:  math.Inf(-1),
			}
			byDate[key] = a
			order = append(order, a)
		}
		a.tmin = math.Min(a.tmin, item.Main.Temp)
		a.tmax = math.Max(a.tmax, item.Main.Temp)
		a.pop = math.Max(a.pop, item.Pop)
		a.rain += item.Rain.ThreeHours
	}

	out := make([]types.ForecastDay, 0, len(order))
	for _, a := range order {
		out = append(out, types.ForecastDay{
			Day:        a.label,
			RainChance: math.Round(a.pop * 100),
			RainVolume: math.Round(a.rain*10) / 10,
			TempMin:    math.Round(a.tmin),
			TempMax:    math.Round(a.tmax),
		})
	}
	return out
}
