// Package logging provides leveled printf-style logging for the thumbnailer.
//
// Levels, lowest first:
//   - DEBUG: per-file cache and generation decisions
//   - INFO: startup, configuration, registry reloads
//   - WARN: degraded operation (failed writes, unreadable settings)
//   - ERROR: errors that affect a whole subsystem
//
// The level is read once from DEBUG, THUMBNAILER_LOG_LEVEL or LOG_LEVEL and
// can be overridden with SetLevel.
package logging
