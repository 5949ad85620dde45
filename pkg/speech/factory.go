package speech

import (
	"fmt"
	"log/slog"
	"runtime"
)

// candidates lists the binaries tried for each backend, in order.
var candidates = map[Backend][]string{
	BackendEspeak:           {"espeak-ng", "espeak"},
	BackendSay:              {"say"},
	BackendSpeechDispatcher: {"spd-say"},
}

// New creates a speech engine for the given backend.
// If backend is BackendAuto, every installed synthesizer for the platform is
// chained in order of preference.
func New(backend Backend, logger *slog.Logger, opts ...Option) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	var binaries []string
	switch backend {
	case BackendMock:
		return NewLoggingMock(logger), nil
	case BackendAuto, "":
		backend = BackendAuto
		for _, b := range platformBackends() {
			binaries = append(binaries, candidates[b]...)
		}
	case BackendEspeak, BackendSay, BackendSpeechDispatcher:
		binaries = candidates[backend]
	default:
		return nil, fmt.Errorf("unsupported speech backend: %s", backend)
	}

	var engines []Engine
	for _, bin := range binaries {
		e, err := NewCommand(bin, opts...)
		if err != nil {
			logger.Debug("speech binary not available", "binary", bin)
			continue
		}
		engines = append(engines, e)
	}

	switch len(engines) {
	case 0:
		return nil, fmt.Errorf("%w: backend %s (tried %v)", ErrNoEngine, backend, binaries)
	case 1:
		logger.Info("speech engine selected", "engine", engines[0].Name())
		return engines[0], nil
	default:
		chain, err := NewChain(logger, engines...)
		if err != nil {
			return nil, err
		}
		logger.Info("speech engine selected", "engine", chain.Name())
		return chain, nil
	}
}

// platformBackends returns the backends worth trying on this platform, best first.
func platformBackends() []Backend {
	switch runtime.GOOS {
	case "darwin":
		return []Backend{BackendSay, BackendEspeak}
	case "linux":
		return []Backend{BackendEspeak, BackendSpeechDispatcher}
	default:
		return []Backend{BackendEspeak}
	}
}
