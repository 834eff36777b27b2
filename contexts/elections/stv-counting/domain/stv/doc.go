// Package stv counts multi-seat elections with the Wright variant of the
// Single Transferable Vote.
//
// Every elimination round re-derives the tallies from first preferences over
// the candidates still standing: ballots start at weight one, surpluses are
// transferred proportionally with exact rational arithmetic until no tally
// exceeds the Droop quota, and if too few candidates reached quota the lowest
// ranked candidate is excluded and the round is counted again from scratch.
// Fractional weights are never carried from one elimination round into the
// next.
//
// The package is pure: no I/O, no logging, no shared state. A count is a
// single synchronous call to Count or WrightSTV.
package stv
