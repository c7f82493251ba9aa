package calculator

import "RallyScope/internal/model"

// DefaultMinExtrema is the minimum number of peaks and of valleys needed
// before any rally window is formed.
const DefaultMinExtrema = 2

// PairWindows merges ascending peak and valley indices into rally windows.
// Each valley is paired with the first later peak; a peak with no earlier
// unpaired valley is skipped. Returns nil when either side has fewer than
// minExtrema entries.
func PairWindows(peaks, valleys []int, minExtrema int) []model.Window {
	if len(peaks) < minExtrema || len(valleys) < minExtrema {
		return nil
	}

	var windows []model.Window
	n, m := 0, 0 // n walks valleys, m walks peaks
	for n < len(valleys) && m < len(peaks) {
		if valleys[n] < peaks[m] {
			windows = append(windows, model.Window{Valley: valleys[n], Peak: peaks[m]})
			n++
		}
		m++
	}
	return windows
}
