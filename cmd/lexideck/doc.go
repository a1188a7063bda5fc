// Command lexideck fetches pronunciation audio and illustrations for a
// vocabulary table, caches them by content, and writes a card manifest that
// references the cached media.
//
// Subcommands:
//   - build: resolve media for every row and write the manifest
//   - cache: inspect, prune, or clear the media cache
//   - config: create, show, or locate the configuration file
package main
