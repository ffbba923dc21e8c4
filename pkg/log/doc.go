// Package log provides packet and engine capture for glow-go.
//
// Capture is separate from operational logging (slog): it is a complete,
// machine-readable trace of what each observer was sent and why, meant for
// debugging rewrites after the fact.
//
// # Basic Usage
//
//	// Development: capture to the console via slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// Production: compressed capture file
//	cfg.Capture, _ = log.NewFileLogger("/var/log/glow/engine.glog.zst")
//
//	// Both
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: raw frames (FrameEvent)
//   - Intercept: glowing-bit rewrites of host packets (RewriteEvent),
//     host packets naming reserved teams (TeamEvent)
//   - Engine: forced updates, token traffic, lifecycle (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR maps with integer keys, optionally
// zstd-compressed. The glow-log tool dumps and filters them.
package log
