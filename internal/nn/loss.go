package nn

// L1Loss is the sum of absolute differences over the shorter of the two
// slices.
func L1Loss(predicted, target []float32) float32 {
	n := min(len(predicted), len(target))
	var loss float32
	for i := 0; i < n; i++ {
		d := predicted[i] - target[i]
		if d < 0 {
			d = -d
		}
		loss += d
	}
	return loss
}

// MSELoss is the mean squared difference over the shorter of the two
// slices. It is 0 for empty input.
func MSELoss(predicted, target []float32) float32 {
	n := min(len(predicted), len(target))
	if n == 0 {
		return 0
	}
	var loss float32
	for i := 0; i < n; i++ {
		d := predicted[i] - target[i]
		loss += d * d
	}
	return loss / float32(n)
}
