// Package blocking provides the goroutine-per-connection echo engine.
//
// Each accepted connection gets its own goroutine that reads whole lines,
// writes every line back followed by "\n" and closes after a "/quit" line
// or at end of stream. It trades scalability for simplicity and serves as
// the baseline the reactor engine is compared against.
package blocking
