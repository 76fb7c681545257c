// Package logging renders extension log lines as "[extensionId]: LEVEL message",
// with INFO in green on stdout and ERROR in red on stderr, and provides the
// host's rotating log file writer.
package logging
