// Package logging wires slog into the daemon: one logger per subsystem,
// levels adjustable per module at runtime, and every record copied into
// a ring buffer the HTTP API can read back.
//
// # Destinations
//
// Records fan out to whichever sinks exist at startup:
//
//   - the systemd journal, when journald accepts connections
//   - stdout, as text or JSON depending on Config.Format
//   - an optional file added later with AddLogFile
//   - always the in-memory ring buffer behind /api/logs
//
// # Module loggers
//
// Call Initialize once, then fetch loggers by subsystem name:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"cameras": "debug"},
//	})
//
//	log := logging.GetLogger("cameras")
//	log.Info("Camera opened", "device", dev)
//
// Loggers are cached, and each one carries its own level variable, so
// SetModuleLevel("cameras", "debug") takes effect on loggers that were
// handed out earlier. CAMNODE_LOG_LEVEL overrides the configured global
// level without touching per-module settings.
//
// The SDK reports through the same tree: pass logging.GetLogger("camera")
// as evk.OpenParam.Logger and capture diagnostics land next to the
// daemon's own records.
//
// # Reading the journal
//
// Entries are tagged for journalctl, with attributes uppercased into
// journal fields:
//
//	journalctl -t camnode -f
//	journalctl -t camnode MODULE=cameras
//	journalctl -t camnode -p err
//
// # TOML
//
// The [logging] table of the daemon config mirrors Config:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	cameras = "debug"
//	api = "warn"
package logging
