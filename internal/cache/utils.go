package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ResolveValkeyAddrs returns the explicit node list, or the addresses the
// service name resolves to.
func ResolveValkeyAddrs(nodes []string, service string) ([]string, error) {
	if len(nodes) > 0 {
		return nodes, nil
	}

	if service != "" {
		addrs, err := net.LookupHost(service)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", service, err)
		}
		var out []string
		for _, ip := range addrs {
			out = append(out, net.JoinHostPort(ip, "6379"))
		}
		return out, nil
	}

	return nil, errors.New("no Valkey discovery env provided (VALKEY_NODES or VALKEY_SERVICE)")
}

func historyKey(sensorID string) string {
	return "readings:" + sensorID
}

func unmarshal(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode cached value: %w", err)
	}
	return nil
}
