package source

import (
	"context"
	"fmt"
	"log/slog"
)

// New creates a source for cfg.Kind. The camera kind lives in the camera
// subpackage and is rejected here with ErrUnsupportedKind.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	switch cfg.Kind {
	case KindSynthetic:
		return NewSynthetic(cfg.Synthetic, cfg.Interval), nil
	case KindReplay:
		return OpenReplay(cfg.Replay, cfg.Interval)
	case KindSerial:
		return OpenSerial(cfg.Serial)
	case KindPush:
		return NewPush(string(KindPush), cfg.BufferSize), nil
	case KindWebSocket:
		return DialWebSocket(ctx, cfg.WebSocket.URL, cfg.BufferSize, logger)
	case KindMQTT:
		return ConnectMQTT(cfg.MQTT, cfg.BufferSize, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, cfg.Kind)
	}
}
