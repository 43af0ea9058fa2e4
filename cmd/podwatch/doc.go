// Package main hosts the podwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the watcher, login and logout flows, job status queries, and
// configuration scaffolding. It centralizes configuration resolution and
// socket discovery so subcommands can focus on user experience.
package main
