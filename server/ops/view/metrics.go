package view

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type LabelledCounter interface {
	Inc(label string)
}

type noopMetric struct{}

func (noopMetric) Inc()        {}
func (noopMetric) Set(float64) {}

type noopLabelled struct{}

func (noopLabelled) Inc(string) {}

type Metrics struct {
	Frames      Counter
	Rebuilds    Counter
	KeyPairs    Gauge
	FetchErrors LabelledCounter
}

func (m *Metrics) defaultUnused() {
	if m.Frames == nil {
		m.Frames = noopMetric{}
	}
	if m.Rebuilds == nil {
		m.Rebuilds = noopMetric{}
	}
	if m.KeyPairs == nil {
		m.KeyPairs = noopMetric{}
	}
	if m.FetchErrors == nil {
		m.FetchErrors = noopLabelled{}
	}
}
