// Package textutil provides text normalization used when turning vocabulary
// rows into cache keys, speech input, and card fields.
//
// The primary use cases are:
//   - NFC normalization so visually identical strings hash to the same key
//   - Cleaning markup out of text before speech synthesis
//   - Splitting context sentences and formatting display fields
//   - Sanitizing tokens for safe filesystem use
package textutil
