// Package middleware provides HTTP middleware for the thumbnailer API.
//
// Logger writes one W3C Extended Log Format line per request. Metrics
// records request counts and latencies labelled by the matched mux route
// template, so query strings and resource URIs never become label values.
package middleware
