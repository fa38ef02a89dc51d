// Package memory keeps thumbnail generation inside the process memory
// budget.
//
// Configure derives GOMEMLIMIT from a container limit. A Monitor samples the
// heap and reports pressure: above the high water mark generation is
// throttled, above the critical mark it is paused until the heap shrinks.
// Decoding large images is the dominant allocation, so callers check the
// monitor before each generation rather than mid-decode.
package memory
