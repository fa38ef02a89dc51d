// Package settings is the hierarchical key/value tree the thumbnailer reads
// its configuration from.
//
// Keys are slash-separated paths ("/desktop/gnome/thumbnailers/disable_all").
// A Store adds typed getters with fallbacks, typed setters, directory
// enumeration and change subscriptions on top of a Backend. Two backends are
// provided: SQLiteBackend for persistent settings and MemoryBackend.
//
// The thumbnailers subtree can be seeded from a YAML file with ImportYAML and
// kept in sync with it by a Watcher.
package settings
