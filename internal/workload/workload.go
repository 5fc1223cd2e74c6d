// Package workload provides pure CPU-bound kernels used to manufacture
// profiling signal and to simulate background load. All functions are
// stateless and deterministic; any number of goroutines may run them
// concurrently.
package workload

import (
	"context"
	"runtime"
)

// Fibonacci computes fib(n) by naive recursion. The exponential cost is
// intentional: it produces deep recursive stacks for the CPU profiler.
// Callers cap n to keep wall-clock time bounded.
func Fibonacci(n int) uint64 {
	if n < 2 {
		return uint64(n)
	}
	return Fibonacci(n-1) + Fibonacci(n-2)
}

// CountPrimes counts primes up to limit by trial division.
func CountPrimes(limit int) int {
	count := 0
	for n := 2; n <= limit; n++ {
		if isPrime(n) {
			count++
		}
	}
	return count
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for i := 2; i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// HashMix runs a multiplicative/XOR mixing loop for the given number of
// iterations and returns the final hash value.
func HashMix(iterations int) uint64 {
	var hash uint64
	for i := 0; i < iterations; i++ {
		hash = hash*31 + uint64(i)
		hash ^= hash >> 16
		hash *= 0x85ebca6b
		hash ^= hash >> 13
		hash *= 0xc2b2ae35
		hash ^= hash >> 16
	}
	return hash
}

// Intensity arguments for RunMixed. Kept small enough that a single round
// finishes in well under a second on commodity hardware.
const (
	fibonacciDepth = 27
	primeLimit     = 10000
	hashIterations = 50000
)

// RunMixed runs `iterations` rounds of the kernel selected by
// taskIndex % 3, yielding to the scheduler between rounds so CPU-bound
// work never starves other goroutines. It returns early with ctx.Err()
// when the context is cancelled; partial results are discarded by design.
func RunMixed(ctx context.Context, taskIndex, iterations int) error {
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch taskIndex % 3 {
		case 0:
			Fibonacci(fibonacciDepth)
		case 1:
			CountPrimes(primeLimit)
		default:
			HashMix(hashIterations)
		}

		runtime.Gosched()
	}
	return nil
}
