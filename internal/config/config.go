// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	Scylla struct {
		Nodes        []string
		MetaKeyspace string
		DataKeyspace string
	}

	Valkey struct {
		Nodes   []string
		Service string
	}

	MemcachedAddr string

	Kafka struct {
		Brokers       []string
		ReadingsTopic string
		AlertsTopic   string
		GroupID       string
	}

	MQTT struct {
		Broker   string
		ClientID string
		Topic    string
		Username string
		Password string
	}

	Emqx struct {
		URL         string
		APIKey      string
		APISecret   string
		AlertsTopic string
	}

	// Notifier selects where outbound alerts go: kafka, emqx or log.
	Notifier string

	Weather struct {
		BaseURL         string
		APIKey          string
		Lat             float64
		Lon             float64
		CacheTTL        time.Duration
		RefreshInterval time.Duration
	}

	Advisor struct {
		CooldownWindow    time.Duration
		HistorySize       int
		AnalysisTTL       time.Duration
		ReportConcurrency int
		CropsFile         string
	}

	TempoEndpoint string

	Log struct {
		Level  string
		Format string
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.Scylla.Nodes = getList("SCYLLA_NODES")
	cfg.Scylla.MetaKeyspace = getEnv("SCYLLA_META_KEYSPACE", "sensors_meta")
	cfg.Scylla.DataKeyspace = getEnv("SCYLLA_DATA_KEYSPACE", "sensors_data")

	cfg.Valkey.Nodes = getList("VALKEY_NODES")
	cfg.Valkey.Service = getEnv("VALKEY_SERVICE", "")
	cfg.MemcachedAddr = getEnv("MEMCACHED_ADDR", "")

	cfg.Kafka.Brokers = getList("KAFKA_BROKERS")
	cfg.Kafka.ReadingsTopic = getEnv("KAFKA_READINGS_TOPIC", "sensor-readings")
	cfg.Kafka.AlertsTopic = getEnv("KAFKA_ALERTS_TOPIC", "sensor-alerts")
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", "nostradamus-advisor")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "nostradamus-advisor")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "sensors/+/readings")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")

	cfg.Emqx.URL = getEnv("EMQX_URL", "")
	cfg.Emqx.APIKey = getEnv("EMQX_API_KEY", "")
	cfg.Emqx.APISecret = getEnv("EMQX_API_SECRET", "")
	cfg.Emqx.AlertsTopic = getEnv("EMQX_ALERTS_TOPIC", "alerts/%s")

	cfg.Notifier = getEnv("NOTIFIER", "log")
	switch cfg.Notifier {
	case "kafka", "emqx", "log":
	default:
		return nil, fmt.Errorf("NOTIFIER: unknown notifier %q", cfg.Notifier)
	}

	cfg.Weather.BaseURL = getEnv("OPENWEATHER_URL", "https://api.openweathermap.org/data/2.5")
	cfg.Weather.APIKey = getEnv("OPENWEATHER_API_KEY", "")
	if cfg.Weather.Lat, err = getFloat("WEATHER_LAT", 14.6937); err != nil {
		return nil, err
	}
	if cfg.Weather.Lon, err = getFloat("WEATHER_LON", -17.4441); err != nil {
		return nil, err
	}
	if cfg.Weather.CacheTTL, err = getDuration("WEATHER_CACHE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Weather.RefreshInterval, err = getDuration("WEATHER_REFRESH_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Advisor.CooldownWindow, err = getDuration("ALERT_COOLDOWN", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Advisor.HistorySize, err = getInt("HISTORY_SIZE", 24); err != nil {
		return nil, err
	}
	if cfg.Advisor.AnalysisTTL, err = getDuration("ANALYSIS_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Advisor.ReportConcurrency, err = getInt("REPORT_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	cfg.Advisor.CropsFile = getEnv("CROPS_FILE", "")

	cfg.TempoEndpoint = getEnv("TEMPO_ENDPOINT", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, value)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive", key)
	}
	return d, nil
}
