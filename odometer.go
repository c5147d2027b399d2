package das

// odometer walks every coordinate in an N dimensional half open range,
// innermost (last) index fastest. All subset tiers iterate with it so that
// every coordinate they touch has been range checked against min/max.
type odometer struct {
	min, max, cur []int
	done          bool
}

func newOdometer(min, max []int) *odometer {
	o := &odometer{min: min, max: max, cur: make([]int, len(min))}
	copy(o.cur, min)
	if len(min) == 0 || len(min) != len(max) {
		o.done = true
	}
	for i := range min {
		if max[i] <= min[i] {
			o.done = true
		}
	}
	return o
}

func (o *odometer) next() {
	for d := len(o.cur) - 1; d >= 0; d-- {
		o.cur[d]++
		if o.cur[d] < o.max[d] {
			return
		}
		o.cur[d] = o.min[d]
	}
	o.done = true
}

// rangeShape converts a subset range to an output shape. With squeeze set,
// dimensions holding a single value are dropped.
func rangeShape(min, max []int, squeeze bool) ([]int, error) {
	if len(min) != len(max) {
		return nil, errorf(ErrInvalidRange, "min has %d indices, max has %d", len(min), len(max))
	}
	shape := make([]int, 0, len(min))
	for d := range min {
		if min[d] < 0 || max[d] <= min[d] {
			return nil, errorf(ErrInvalidRange, "index %d range [%d,%d) is empty or negative", d, min[d], max[d])
		}
		if squeeze && max[d]-min[d] == 1 {
			continue
		}
		shape = append(shape, max[d]-min[d])
	}
	return shape, nil
}

func product(vals []int) int {
	n := 1
	for _, v := range vals {
		n *= v
	}
	return n
}
