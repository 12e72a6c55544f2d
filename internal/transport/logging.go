// SPDX-License-Identifier: MIT
package transport

import (
	"sync"

	"micpipe/internal/audio"
	applog "micpipe/internal/log"
)

// LoggingTransport implements the Transport interface by logging snapshots.
// Every snapshot is logged at debug level; speech start and end are logged
// at info level so a headless run shows activity without flooding.
type LoggingTransport struct {
	log *applog.Logger

	mu       sync.Mutex
	speaking bool
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{log: applog.Named("Levels")}
	lt.log.Debugf("using logging transport")
	return lt
}

// Send logs the received data. Non-snapshot values are logged as is.
func (lt *LoggingTransport) Send(data any) error {
	s, ok := data.(*audio.Snapshot)
	if !ok {
		lt.log.Debugf("received %T: %+v", data, data)
		return nil
	}

	lt.log.Debugf("seq=%d volume=%.3f rms=%.1fdB peak=%.1fdB speaking=%v",
		s.Sequence, s.Volume, s.AveragePowerDB, s.PeakPowerDB, s.Speaking)

	lt.mu.Lock()
	changed := s.Speaking != lt.speaking
	lt.speaking = s.Speaking
	lt.mu.Unlock()

	if changed {
		if s.Speaking {
			lt.log.Infof("speech started (volume %.3f)", s.Volume)
		} else {
			lt.log.Infof("speech ended")
		}
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
