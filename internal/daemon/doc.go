// Package daemon runs the long-lived lotsort HTTP service.
//
// It owns the in-memory session registry, serves the JSON API through a chi
// router (optionally behind a bearer token), and holds a flock-based lock so
// only one instance serves a state directory at a time. Session semantics live
// in the session package; the handlers here only translate HTTP to session
// calls and session errors to status codes.
package daemon
