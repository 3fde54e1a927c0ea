package led

import "log/slog"

// noop satisfies Controller on hosts without addressable LEDs. Set
// requests are logged at debug and succeed.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, enabled bool, pattern string) error {
	if n.logger != nil {
		n.logger.Debug("LED control unavailable",
			"led", name, "enabled", enabled, "pattern", pattern)
	}
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Patterns() []string { return []string{} }
