// Package bootstrap runs a finite task with a uniform lifecycle: the
// config is defaulted and validated, the logger is initialized, registered
// components are started, and everything is shut down in reverse order
// once the task returns or the process receives SIGINT or SIGTERM.
package bootstrap
