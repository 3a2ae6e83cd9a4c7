// Package sink writes accumulated tables to files. One writer per format:
// csv (optionally zstd-compressed), parquet and msgpack. All writers write
// to a temporary path and rename into place, so outputs are either complete
// or absent.
package sink
