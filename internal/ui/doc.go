// Package ui implements a terminal progress monitor using bubbletea's Elm architecture.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern. On
// a fixed tick it re-reads the per-stage percentages from the file-backed
// progress store and renders one bubbles/progress bar per transfer stage
// (download from MapMyRun, upload to Strava).
//
// Because the store lives on disk, the monitor runs independently of the
// process performing the transfer: point it at the same progress directory
// and watch a harvest or upload driven by the service or another CLI
// invocation.
package ui
