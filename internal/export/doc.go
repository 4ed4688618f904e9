// Package export writes analysis metrics in the Prometheus text exposition
// format, for node_exporter's textfile collector or for archiving, and
// reads such files back.
//
// Written files are replaced atomically so a concurrent scrape never sees a
// partial file.
package export
