package service

import (
	"sort"

	"clinic-scheduling/internal/domain/entity"
)

// WaitTimeEstimator maps a 1-based queue position to an estimated wait in minutes.
// Swapping the estimator (for a running average of real consultation times)
// does not touch position logic.
type WaitTimeEstimator func(position int) int

// FixedWaitTime multiplies the position by a constant consultation length
func FixedWaitTime(averageConsultationMinutes int) WaitTimeEstimator {
	return func(position int) int {
		return position * averageConsultationMinutes
	}
}

// OrderingPolicy picks the index of the waiting entry to call next from a list
// already in enqueue order. It is the plug point for priority ordering.
type OrderingPolicy func(waiting []entity.QueueEntry) int

// FIFO calls the earliest enqueued entry
func FIFO(waiting []entity.QueueEntry) int {
	if len(waiting) == 0 {
		return -1
	}
	return 0
}

// SortByEnqueueOrder orders entries by enqueue time, serial number breaking ties
func SortByEnqueueOrder(entries []entity.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].SerialNumber < entries[j].SerialNumber
	})
}

// RecomputePositions drops non-waiting entries and assigns gapless 1-based
// positions by enqueue order, with the estimated wait for each.
func RecomputePositions(entries []entity.QueueEntry, estimate WaitTimeEstimator) []entity.QueueEntry {
	waiting := make([]entity.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsWaiting() {
			waiting = append(waiting, e)
		}
	}
	SortByEnqueueOrder(waiting)

	for i := range waiting {
		waiting[i].Position = i + 1
		if estimate != nil {
			waiting[i].EstimatedWaitTime = estimate(i + 1)
		}
	}
	return waiting
}
