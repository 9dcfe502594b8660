package streamer

import (
	"go.uber.org/zap"

	"github.com/strata3d/strata/engine/config"
	"github.com/strata3d/strata/engine/fetch"
)

// StreamerOption is a functional option for configuring a Streamer on
// construction.
type StreamerOption func(*streamer)

// WithConfig sets the streaming configuration. Validation happens in New.
//
// Parameters:
//   - cfg: the configuration to use
//
// Returns:
//   - StreamerOption: the option
func WithConfig(cfg config.Config) StreamerOption {
	return func(s *streamer) {
		s.cfg = cfg
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - StreamerOption: the option
func WithLogger(logger *zap.Logger) StreamerOption {
	return func(s *streamer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFetcher sets the payload fetcher. Required.
//
// Parameters:
//   - fetcher: source of buffer and image payloads
//
// Returns:
//   - StreamerOption: the option
func WithFetcher(fetcher fetch.Fetcher) StreamerOption {
	return func(s *streamer) {
		s.fetcher = fetcher
	}
}

// WithRenderer sets the renderer collaborator. Required.
//
// Parameters:
//   - renderer: sink for decoded geometry and resolved materials
//
// Returns:
//   - StreamerOption: the option
func WithRenderer(renderer Renderer) StreamerOption {
	return func(s *streamer) {
		s.renderer = renderer
	}
}

// WithObserver sets the observer collaborator. Required.
//
// Parameters:
//   - observer: source of the per-tick position and frustum
//
// Returns:
//   - StreamerOption: the option
func WithObserver(observer Observer) StreamerOption {
	return func(s *streamer) {
		s.observer = observer
	}
}
