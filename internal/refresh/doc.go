// Package refresh implements the periodic snapshot scheduler.
//
// A Scheduler repeatedly runs a fetch function on a fixed interval and
// retains the last successfully fetched snapshot. A failed tick keeps the
// previous snapshot available and records the error; the next tick runs
// on schedule regardless. Ticks within one scheduler never overlap, and a
// fetch still in flight when the scheduler stops has its result discarded.
package refresh
