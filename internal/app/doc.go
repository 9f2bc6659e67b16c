// Package app wires the document tree, the module handler registry and the
// orchestrator into a runnable application instance with its own isolated
// logger.
package app
