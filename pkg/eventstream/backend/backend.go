// Package backend opens the event publisher selected in configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/designlog/pkg/config"
	"github.com/papercomputeco/designlog/pkg/eventstream"
	"github.com/papercomputeco/designlog/pkg/eventstream/kafka"
	"github.com/papercomputeco/designlog/pkg/eventstream/nop"
)

// Provider names accepted in [eventstream] provider.
const (
	ProviderNone  = ""
	ProviderKafka = "kafka"
)

// Open returns the publisher described by cfg; an empty provider yields the
// no-op publisher.
func Open(cfg config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case ProviderNone, "none":
		return nop.NewPublisher(), nil
	case ProviderKafka:
		p, err := kafka.NewPublisher(cfg.Brokers, cfg.Topic)
		if err != nil {
			return nil, err
		}
		log.Debug("publishing entries to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown eventstream provider %q", cfg.Provider)
	}
}
