// Package util holds schema and instruction templating helpers shared by
// the tool, flow and agent packages.
package util
