package heat

// span is an inclusive column range inside a row.
type span struct{ start, end int }

// rowMask lists the spans of mutable cells in one row.
type rowMask struct {
	y     int
	spans []span
}

// workerMask collects the rows assigned to one worker goroutine.
type workerMask struct {
	rows []rowMask
}

// buildRowMasks scans the table for runs of cells that are neither fixed nor
// insulated. Every row is returned, even one without spans, because its
// immutable cells still have to be carried into the destination buffer.
func buildRowMasks(table []uint32, width, height int) []rowMask {
	rows := make([]rowMask, 0, height)
	for y := 0; y < height; y++ {
		base := y * width
		var spans []span
		in := false
		start := 0
		for x := 0; x < width; x++ {
			mutable := table[base+x]&cellImmutable == 0
			if mutable && !in {
				in = true
				start = x
			}
			if !mutable && in {
				spans = append(spans, span{start: start, end: x - 1})
				in = false
			}
		}
		if in {
			spans = append(spans, span{start: start, end: width - 1})
		}
		rows = append(rows, rowMask{y: y, spans: spans})
	}
	return rows
}

// assignRowMasks distributes rows across workers in round robin fashion.
func assignRowMasks(workerCount int, rows []rowMask) []workerMask {
	if workerCount < 1 {
		workerCount = 1
	}
	masks := make([]workerMask, workerCount)
	for idx, row := range rows {
		workerIdx := idx % workerCount
		masks[workerIdx].rows = append(masks[workerIdx].rows, row)
	}
	return masks
}
