package detection

// Postprocessor filters or modifies the detections of one frame.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter drops detections below a confidence.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewAreaFilter drops detections whose box is smaller than area pixels.
func NewAreaFilter(area int) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewLabelFilter drops detections whose label is in ignore.
func NewLabelFilter(ignore ...string) Postprocessor {
	skip := make(map[string]bool, len(ignore))
	for _, l := range ignore {
		skip[l] = true
	}
	return func(in []Detection) []Detection {
		if len(skip) == 0 {
			return in
		}
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if !skip[d.Label] {
				out = append(out, d)
			}
		}
		return out
	}
}

// Compose chains postprocessors left to right. Nil entries are skipped.
func Compose(pps ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		for _, pp := range pps {
			if pp != nil {
				in = pp(in)
			}
		}
		return in
	}
}
