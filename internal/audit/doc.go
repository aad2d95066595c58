// Package audit writes an append-only JSONL record of every command
// attempt, including who issued it, which vehicle it addressed, and how
// it concluded. Files rotate by size.
package audit
