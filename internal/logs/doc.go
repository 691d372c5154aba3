// Package logs reads aerial daemon log files with bounded memory so the CLI
// and the daemon API can serve "last N lines" and follow-style views.
//
// Tail supports a negative offset meaning "start from the last Lines lines"
// and returns the next read offset so callers can resume. A non-zero Wait
// turns an empty read into a short blocking poll, which keeps follow loops
// cheap without holding file handles open between calls.
package logs
