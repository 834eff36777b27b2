// Package stvcounting implements multi-winner elections counted with the
// Wright system of the Single Transferable Vote.
//
// The module opens elections, accepts one ranked ballot per voter and runs
// the count once voting closes. The counting engine lives in domain/stv and
// has no knowledge of storage or transport. Election lifecycle events are
// written to an outbox and relayed to the event bus by a worker.
package stvcounting
