package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

func newConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

// decodeReading parses a reading message. Producers that key messages by
// sensor may omit sensor_id from the payload.
func decodeReading(msg *sarama.ConsumerMessage) (types.Reading, error) {
	var r types.Reading
	if err := json.Unmarshal(msg.Value, &r); err != nil {
		return r, fmt.Errorf("%w: %v", types.ErrInvalidReading, err)
	}
	if r.SensorID == "" && len(msg.Key) > 0 {
		r.SensorID = string(msg.Key)
	}
	return r, nil
}
