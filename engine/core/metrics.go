package core

const avgCount = 30

// Metrics keeps a rolling frame-time average and an FPS counter for the
// info overlay. One instance lives on the application, updated once per tick.
type Metrics struct {
	frameAVGCounter    uint8
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedTime float64) {
	// Calculate frame ms average
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == avgCount-1 {
		sum := 0.0
		for i := 0; i < avgCount; i++ {
			sum += m.msTimes[i]
		}
		m.msAvg = sum / float64(avgCount)
	}
	m.frameAVGCounter++
	m.frameAVGCounter %= avgCount

	// Calculate frames per second.
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}

	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
