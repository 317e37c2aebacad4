/*
Package bench drives a fixed suite of operations against every transport binding and
compares their latency.

Each operation runs sequentially on one transport at a time: a few untimed warm-up
iterations first, then the measured repetitions. A transport that cannot be dialed or
does not answer the initial ping is reported as unavailable and the run carries on with
the others. Failed calls are recorded but kept out of the latency statistics.
*/
package bench
