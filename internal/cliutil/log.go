// Package cliutil holds the small ambient pieces shared by cmd/downlink's
// subcommands: CCSDS_LOG parsing into an slog level (with optional
// per-component overrides) and the tint-backed handler construction.
// log/slog itself remains the logging facade.
package cliutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// LevelConfig is a parsed CCSDS_LOG value: a default level plus optional
// per-component overrides.
type LevelConfig struct {
	Default   slog.Level
	Overrides map[string]slog.Level
}

// ParseLogLevel parses CCSDS_LOG's mini-grammar: a comma-separated list
// where a bare token ("debug") sets the default level and a "pkg=level"
// token overrides the level for records logged with component=pkg. An
// empty string yields the zero LevelConfig (slog.LevelInfo, no overrides).
//
//	CCSDS_LOG=debug
//	CCSDS_LOG=info,framing=debug,merge=warn
func ParseLogLevel(raw string) (LevelConfig, error) {
	cfg := LevelConfig{Default: slog.LevelInfo}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cfg, nil
	}

	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if pkg, lvl, ok := strings.Cut(tok, "="); ok {
			level, err := parseLevel(lvl)
			if err != nil {
				return LevelConfig{}, fmt.Errorf("cliutil: CCSDS_LOG override %q: %w", tok, err)
			}
			if cfg.Overrides == nil {
				cfg.Overrides = make(map[string]slog.Level)
			}
			cfg.Overrides[pkg] = level
			continue
		}
		level, err := parseLevel(tok)
		if err != nil {
			return LevelConfig{}, fmt.Errorf("cliutil: CCSDS_LOG: %w", err)
		}
		cfg.Default = level
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

// NewLogger builds an slog.Logger writing to w using a tint handler at
// cfg.Default, wrapped so that a component attribute present in
// cfg.Overrides raises or lowers the effective level for everything logged
// through that component's child logger (i.e. after a `.With("component",
// name)` call).
func NewLogger(cfg LevelConfig, w io.Writer) *slog.Logger {
	base := tint.NewHandler(w, &tint.Options{Level: cfg.Default})
	return slog.New(&levelHandler{next: base, level: cfg.Default, overrides: cfg.Overrides})
}

// levelHandler wraps an slog.Handler to support per-component level
// overrides. Overrides only take effect once a "component" attribute has
// been attached via WithAttrs (the idiomatic `logger.With("component",
// "x")` pattern used throughout this module), since Enabled is otherwise
// called before a record's attributes are known.
type levelHandler struct {
	next      slog.Handler
	level     slog.Level
	overrides map[string]slog.Level
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.next.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, a := range attrs {
		if a.Key != "component" {
			continue
		}
		if override, ok := h.overrides[a.Value.String()]; ok {
			level = override
		}
	}
	return &levelHandler{next: h.next.WithAttrs(attrs), level: level, overrides: h.overrides}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{next: h.next.WithGroup(name), level: h.level, overrides: h.overrides}
}
