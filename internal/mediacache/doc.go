// Package mediacache stores fetched media as content-addressed files in a flat
// media directory.
//
// A Key (kind, normalized content, variant) hashes to a stable file name, so
// identical requests from different records resolve to the same artifact and
// a file that already exists on disk is reused across runs without another
// fetch. Writes land in a temporary file and are published with a rename, so
// readers never observe a partial artifact.
//
// A SQLite index next to the media records size, digest, and timestamps for
// the cache commands; it is advisory and never consulted to decide a hit. A
// lock file coordinates builds (shared) with clear/prune (exclusive).
package mediacache
