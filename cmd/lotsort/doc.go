// Package main hosts the lotsort CLI.
//
// The Cobra command tree covers offline sorting of a photo directory
// (cluster, describe), running the session HTTP API (serve), querying a
// running server (status), and configuration scaffolding. Domain logic lives
// in the internal packages; commands only load configuration, wire
// collaborators and render results.
package main
