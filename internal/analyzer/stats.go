package analyzer

import "sort"

// Compute 把聚合状态转换为逐 URL 的汇总统计,纯函数,输出确定
// Compute converts aggregate state into per-URL summary statistics. It
// is a pure, deterministic function of state: URLs come out in
// first-seen order and nothing is rounded here. When no URL was seen,
// or every recorded duration is zero, there is nothing meaningful to
// report and the result is empty.
//
// CountShare is the share of the distinct-URL count, not of request
// volume. Downstream consumers rely on the exact figure, so it stays.
func Compute(state *AggregateState) []URLMetric {
	urls := state.URLs()
	distinct := len(urls)

	var totalTime float64
	for _, url := range urls {
		for _, d := range state.Durations(url) {
			totalTime += d
		}
	}
	if distinct == 0 || totalTime == 0 {
		return nil
	}

	metrics := make([]URLMetric, 0, distinct)
	for _, url := range urls {
		samples := state.Durations(url)
		count := len(samples)

		var sum, maxDur float64
		for _, d := range samples {
			sum += d
			if d > maxDur {
				maxDur = d
			}
		}

		metrics = append(metrics, URLMetric{
			URL:        url,
			Count:      count,
			CountShare: float64(count) / float64(distinct) * 100,
			TimeSum:    sum,
			TimeShare:  sum / totalTime * 100,
			TimeAvg:    sum / float64(count),
			TimeMax:    maxDur,
			TimeMedian: median(samples),
		})
	}
	return metrics
}

// median returns the standard median: the middle sample, or the mean of
// the two middle samples for even-length input. The input slice is not
// modified.
func median(samples []float64) float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
