// Package handlers provides the HTTP API of the thumbnail service.
//
// It includes handlers for:
//   - Fetching (and generating on demand) a thumbnail for a URI
//   - Querying the cache and failure state of a URI
//   - Listing and reloading the external thumbnailer registry
//   - Health checks and build information
package handlers
