// Package textutil provides text similarity and sanitization helpers used
// by idea deduplication and file export.
package textutil
