// Package examples provides simulated driver implementations for
// demos, the console tool and tests. The simulated synthesizer and
// display keep their state in memory and report output through
// callbacks instead of real hardware.
package examples
