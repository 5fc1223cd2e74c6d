// Package profiling owns the lifecycle of the process's CPU and heap
// profilers. Both are explicitly constructed service objects rather than
// ambient globals: the CPU profiler serializes sampling sessions over the
// runtime's single process-wide sampler, and the heap profiler gates
// allocator-level sampling behind a one-time activation step.
//
// The two profilers have independent mutex domains so a CPU capture and a
// heap dump never contend on the same lock.
package profiling
