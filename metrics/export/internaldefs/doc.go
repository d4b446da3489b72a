// Package internaldefs holds the metric names, bucket bounds and the
// [Reading] shared by the Prometheus and OTel exporters.
//
// Both exporters call [Read] once per scrape so they report the same counter,
// histogram and gauge values under the same names. [Read] pings the
// credential store through the engine's Health call; it performs no other
// I/O.
//
// This package must not import an exporter package.
package internaldefs
