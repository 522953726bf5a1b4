// Package giterror provides error inspection capabilities for GitHub API and
// chat delivery errors. It centralizes the logic for identifying the different
// recoverable failure kinds a repository check can hit, so the watcher,
// scheduler and metrics code classify failures the same way.
package giterror
