package tonemap

// reinhard is the classic x/(1+x) curve applied per channel.
func reinhard(r, g, b float64) (float64, float64, float64) {
	return saturate(r / (1 + r)), saturate(g / (1 + g)), saturate(b / (1 + b))
}
