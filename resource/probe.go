// Package resource negotiates the CPU and memory budget of a run against
// what the host can actually provide.
package resource

import (
	"context"
	"math"
	"runtime"

	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// AllButOne requests every available core except one
const AllButOne = -2

// Negotiate reconciles the requested core count and memory budget (MB) with
// the host. Shortfalls are never fatal: the requested memory is clamped to
// the free budget (available RAM + free swap) with a warning, and a core
// count above the available cores is tolerated with a warning.
func Negotiate(ctx context.Context, requestedCores, requestedMemoryMB int) (int, int) {
	return negotiate(ctx, requestedCores, requestedMemoryMB, runtime.NumCPU(), freeMemoryMB(ctx))
}

func negotiate(ctx context.Context, requestedCores, requestedMemoryMB, availableCores, freeMB int) (int, int) {
	cores := requestedCores
	if requestedCores == AllButOne {
		cores = availableCores - 1
	} else if requestedCores > availableCores {
		log.Logger(ctx).Sugar().Warnf("using %d parallel processes but only %d CPUs available", requestedCores, availableCores)
	}
	if cores < 1 {
		cores = 1
	}

	memory := requestedMemoryMB
	if freeMB < requestedMemoryMB {
		log.Logger(ctx).Sugar().Warnf("using %d MB but only %d MB RAM available", requestedMemoryMB, freeMB)
		log.Logger(ctx).Sugar().Warnf("set used memory to %d MB", freeMB)
		memory = freeMB
	}
	return cores, memory
}

// freeMemoryMB returns the free memory budget in MB: available RAM plus free
// swap. A probe failure only disables clamping.
func freeMemoryMB(ctx context.Context) int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("memory probe failed: %v", err)
		return math.MaxInt
	}
	free := vm.Available
	if swap, err := mem.SwapMemory(); err == nil {
		free += swap.Free
	} else {
		log.Logger(ctx).Sugar().Warnf("swap probe failed: %v", err)
	}
	return int(free / (1024 * 1024))
}
