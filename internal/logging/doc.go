// Package logging provides file-based logging with rotation for ragmcp.
// The serve command always writes JSON logs at debug level to
// ~/.ragmcp/logs/server.log, with or without --debug, and never to stdout
// or stderr.
package logging
