package kv

import (
	"context"
	"log/slog"

	"recensement/pkg/platform/circuit"
)

// FlagPrefix namespaces feature flags inside the store.
const FlagPrefix = "flags/"

// Flags reads boolean feature flags. A missing flag, a disabled store or a
// read error all resolve to the caller's default. Repeated read errors open a
// breaker and reads keep resolving to defaults until the store recovers.
type Flags struct {
	store   Store
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type FlagsOption func(*Flags)

func WithFlagsLogger(logger *slog.Logger) FlagsOption {
	return func(f *Flags) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFlagsBreaker replaces the default breaker (5 failures to open, 3
// successes to close).
func WithFlagsBreaker(b *circuit.Breaker) FlagsOption {
	return func(f *Flags) {
		if b != nil {
			f.breaker = b
		}
	}
}

func NewFlags(store Store, opts ...FlagsOption) *Flags {
	if store == nil {
		store = Disabled{}
	}
	f := &Flags{store: store, logger: slog.Default(), breaker: circuit.New("kv-flags")}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Bool returns the flag value or def when unset.
func (f *Flags) Bool(ctx context.Context, name string, def bool) bool {
	var v bool
	found, err := f.store.Get(ctx, FlagPrefix+name, &v)
	if err != nil {
		_, change := f.breaker.RecordFailure()
		if change.Opened {
			f.logger.ErrorContext(ctx, "feature flag store unavailable, circuit opened",
				"breaker", f.breaker.Name(),
			)
		}
		f.logger.WarnContext(ctx, "feature flag read failed, using default",
			"flag", name,
			"default", def,
			"error", err,
		)
		return def
	}
	usePrimary, change := f.breaker.RecordSuccess()
	if change.Closed {
		f.logger.InfoContext(ctx, "feature flag store recovered, circuit closed",
			"breaker", f.breaker.Name(),
		)
	}
	if !usePrimary || !found {
		return def
	}
	return v
}

// SetBool stores a flag value.
func (f *Flags) SetBool(ctx context.Context, name string, v bool) error {
	return f.store.Set(ctx, FlagPrefix+name, v)
}

// Clear removes a flag so that readers fall back to their defaults.
func (f *Flags) Clear(ctx context.Context, name string) error {
	return f.store.Delete(ctx, FlagPrefix+name)
}
