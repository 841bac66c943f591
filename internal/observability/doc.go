// Package observability builds the process logger and collects routing metrics.
package observability
