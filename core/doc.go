// Package core implements the transformation interpreter: pointer
// addressing over plain JSON-shaped values, the value stabilization
// loop, hierarchical step dispatch, the control-flow and function
// runtime, and the resource limiter that bounds all of it.
//
// A transformation spec is itself plain data (a step or a list of
// steps).  Engine.Apply interprets the spec against an immutable
// source document and incrementally builds a destination document.
// Everything crossing the Apply boundary is canonicalized through a
// JSON round-trip, so documents are maps, slices, float64 numbers,
// strings, bools, and nil.
package core
