package fixed

// The aggregates below carry a running average instead of a raw sum, so
// intermediates never exceed the largest squared deviation and values up
// to MaxAbsValue cannot overflow the decimal coefficient.

func Mean(points []Point) Point {
	mean := Zero
	for i, point := range points {
		mean = mean.Add(point.Sub(mean).DivInt(i + 1))
	}
	return mean
}

// StdDev is the population standard deviation around the given mean.
func StdDev(points []Point, mean Point) Point {
	return Variance(points, mean).Sqrt()
}

func SampleStdDev(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}
	v := Variance(points, mean)
	return v.Add(v.DivInt(len(points) - 1)).Sqrt()
}

func Variance(points []Point, mean Point) Point {
	if len(points) <= 1 {
		return Zero
	}

	avg := Zero
	for i, point := range points {
		diff := point.Sub(mean)
		avg = avg.Add(diff.Mul(diff).Sub(avg).DivInt(i + 1))
	}
	return avg
}
