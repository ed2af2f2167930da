// Package schedule implements the engine's cooperative-yielding
// contract: long traversals call Relinquish at natural boundaries (per
// overmap, per overmap-special, per mod while loading records) to give
// a single-threaded host a chance to process pending input. Building the
// monster policy after the load does not relinquish. The package
// never assumes a particular host scheduling primitive — hosts plug in
// either an input-pending probe or an idle-deadline provider, and tests
// run everything synchronously.
package schedule
