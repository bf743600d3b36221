package syncer

type sweepMetrics struct {
	totalSelected int
	delivered     int
	unchanged     int
	errored       int
}

func (m *sweepMetrics) Add(other *sweepMetrics) {
	m.totalSelected += other.totalSelected
	m.delivered += other.delivered
	m.unchanged += other.unchanged
	m.errored += other.errored
}
