// package profiler provides lightweight frame instrumentation: named zones,
// frame marks and one-off messages, plus a process-wide event dispatcher for
// routing profiling events to listeners.
package profiler

import (
	"log"
	"runtime"
	"time"
)

// Profiler is the instrumentation capability the engine loop drives each
// frame. Implementations must be cheap enough to call on every frame.
type Profiler interface {
	// BeginZone marks the start of a named timing zone. Zones may nest.
	//
	// Parameters:
	//   - name: the zone name
	BeginZone(name string)

	// EndZone marks the end of the most recently begun zone.
	EndZone()

	// Message records a one-off profiling message.
	//
	// Parameters:
	//   - text: the message text
	Message(text string)

	// FrameMark marks a frame boundary. Called once per frame after Present.
	FrameMark()
}

// Null is a Profiler whose methods all do nothing. It is the default when no
// profiler is configured.
type Null struct{}

var _ Profiler = Null{}

func (Null) BeginZone(string) {}
func (Null) EndZone()         {}
func (Null) Message(string)   {}
func (Null) FrameMark()       {}

// Runtime is a Profiler that tracks frame rate and Go runtime memory
// statistics, logging a summary line at a fixed interval. Zone begin/end
// pairs feed the per-frame zone time reported through the event dispatcher.
type Runtime struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	zoneStack []zoneFrame
}

type zoneFrame struct {
	name  string
	start time.Time
}

var _ Profiler = &Runtime{}

// NewRuntime creates a Runtime profiler with a 1 second log interval.
//
// Returns:
//   - *Runtime: the newly created profiler instance
func NewRuntime() *Runtime {
	return &Runtime{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

func (p *Runtime) BeginZone(name string) {
	p.zoneStack = append(p.zoneStack, zoneFrame{name: name, start: time.Now()})
}

func (p *Runtime) EndZone() {
	if len(p.zoneStack) == 0 {
		return
	}
	zone := p.zoneStack[len(p.zoneStack)-1]
	p.zoneStack = p.zoneStack[:len(p.zoneStack)-1]
	Emit(Event{Kind: EventZone, Name: zone.name, Duration: time.Since(zone.start)})
}

func (p *Runtime) Message(text string) {
	Emit(Event{Kind: EventMessage, Name: text})
}

// FrameMark tracks frame timing and logs performance statistics when the
// update interval has elapsed. Statistics include FPS, heap usage, allocation
// rate, GC count/pause times and total memory.
func (p *Runtime) FrameMark() {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	Emit(Event{Kind: EventFrame, Duration: elapsed / time.Duration(p.frameCount)})

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
