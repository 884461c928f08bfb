package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert raises an operator alert. Alerts are logged at error level for the
// log pipeline to route.
func Alert(message string, labels map[string]string) {
	fields := make(map[string]interface{}, len(labels))
	for k, v := range labels {
		fields[k] = v
	}
	log.Error().
		Str("alert", message).
		Fields(fields).
		Msg("ALERT: owner console issue detected")
}
