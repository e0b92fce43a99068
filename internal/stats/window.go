// Package stats implements the windowed RTT, jitter, and packet-loss
// statistics kernel: the lowest layer of the reward pipeline, grounded on
// the original implementation's processor/util.rs.
package stats

// Window computes the half-open sample index range [StartIdx, EndIdx) for a
// sample starting at startTS with the given sampling interval, clamped to
// [0, count]. Values outside the range are excluded from every statistic.
type Window struct {
	StartIdx int
	EndIdx   int
}

// ComputeWindow derives the index range covering the half-open timestamp
// window [after, before) given a sample's start timestamp, its sampling
// interval, and its value count.
func ComputeWindow(startTS, interval uint64, count int, after, before uint64) Window {
	if interval == 0 {
		return Window{StartIdx: 0, EndIdx: count}
	}
	startIdx := 0
	if after > startTS {
		startIdx = int((after - startTS) / interval)
	}
	if startIdx > count {
		startIdx = count
	}
	endIdx := count
	if before > startTS {
		calc := int((before - startTS) / interval)
		if calc < endIdx {
			endIdx = calc
		}
	} else {
		endIdx = 0
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}
	return Window{StartIdx: startIdx, EndIdx: endIdx}
}
