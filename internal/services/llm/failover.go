package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
)

// FailoverService tries generation backends in order, moving to the next when one fails
type FailoverService struct {
	services []interfaces.LLMService
	logger   arbor.ILogger
}

// NewFailoverService creates a failover chain. At least one service is required.
func NewFailoverService(services []interfaces.LLMService, logger arbor.ILogger) *FailoverService {
	return &FailoverService{services: services, logger: logger}
}

// Chat returns the first successful response in chain order
func (f *FailoverService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	var errs []error
	for i, s := range f.services {
		answer, err := s.Chat(ctx, messages)
		if err == nil {
			if i > 0 {
				f.logger.Info().Str("provider", s.Name()).Int("attempt", i+1).Msg("Failover: used fallback provider")
			}
			return answer, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			break
		}
		f.logger.Warn().Str("provider", s.Name()).Int("attempt", i+1).Err(err).Msg("Failover: provider failed, trying next")
	}
	return "", fmt.Errorf("all providers in failover chain failed: %w", errors.Join(errs...))
}

// ChatStream moves to the next provider only while nothing has been yielded.
// Once a fragment reached the consumer, a later error is surfaced as is.
func (f *FailoverService) ChatStream(ctx context.Context, messages []interfaces.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var errs []error
		for i, s := range f.services {
			emitted := false
			var streamErr error
			for fragment, err := range s.ChatStream(ctx, messages) {
				if err != nil {
					streamErr = err
					break
				}
				emitted = true
				if !yield(fragment, nil) {
					return
				}
			}

			if streamErr == nil {
				return
			}
			if emitted {
				yield("", fmt.Errorf("%s: %w", s.Name(), streamErr))
				return
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), streamErr))
			if ctx.Err() != nil {
				break
			}
			f.logger.Warn().Str("provider", s.Name()).Int("attempt", i+1).Err(streamErr).Msg("Failover: stream failed before output, trying next")
		}
		yield("", fmt.Errorf("all providers in failover chain failed: %w", errors.Join(errs...)))
	}
}

// HealthCheck succeeds when any provider is healthy
func (f *FailoverService) HealthCheck(ctx context.Context) error {
	var errs []error
	for _, s := range f.services {
		err := s.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return fmt.Errorf("no healthy provider in failover chain: %w", errors.Join(errs...))
}

func (f *FailoverService) GetMode() interfaces.LLMMode {
	if len(f.services) > 0 {
		return f.services[0].GetMode()
	}
	return interfaces.LLMModeOffline
}

func (f *FailoverService) Name() string {
	names := make([]string, len(f.services))
	for i, s := range f.services {
		names[i] = s.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (f *FailoverService) Close() error {
	var errs []error
	for _, s := range f.services {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ interfaces.LLMService = (*FailoverService)(nil)
