// Package scripts embeds the Risor scripts shipped with rtview.
package scripts

import "embed"

// FS holds the record harvesting scripts and the sample snapshot
// definitions.
//
//go:embed *.risor records/*.risor snapshots/*.risor
var FS embed.FS
