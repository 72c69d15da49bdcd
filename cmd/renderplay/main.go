// Command renderplay plays a live graph through the default audio
// device and publishes playback timing through the seqlock channel,
// which a monitor goroutine samples once per second.
//
// Usage:
//
//	renderplay [flags]
//
// Examples:
//
//	renderplay -freq 220 -dur 10s
//	renderplay -drive 0.6 -oversample 2 -tremolo 4
package main

import (
	"encoding/binary"
	"flag"
	"math"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-render/internal/renderlog"
	"github.com/cwbudde/algo-render/render/graph"
	"github.com/cwbudde/algo-render/render/guard"
	"github.com/cwbudde/algo-render/render/scripthost"
	"github.com/cwbudde/algo-render/render/timing"
)

const frames = 128

func main() {
	var (
		dur     = flag.Duration("dur", 5*time.Second, "playback duration")
		rate    = flag.Int("rate", 48000, "sample rate in Hz")
		freq    = flag.Float64("freq", 440, "oscillator frequency in Hz")
		gain    = flag.Float64("gain", 0.3, "output gain")
		drive   = flag.Float64("drive", 0, "waveshaper drive in [0, 1), 0 disables shaping")
		factor  = flag.Int("oversample", 1, "waveshaper oversampling: 1, 2 or 4")
		tremolo = flag.Float64("tremolo", 0, "tremolo rate in Hz via a script node, 0 disables")
	)
	flag.Parse()
	log := renderlog.GetLogger()

	host := scripthost.NewRealtimeHost()
	defer host.Close()

	d := graph.NewDriver(float64(*rate), frames, host)
	if err := buildGraph(d, host, *freq, *gain, *drive, *factor, *tremolo, *rate); err != nil {
		log.Error(err)
		os.Exit(1)
	}

	region, writer := timing.NewRegion()
	src := &renderSource{driver: d, writer: writer}

	stop := make(chan struct{})
	go monitor(log, region, stop)

	op := &oto.NewContextOptions{
		SampleRate:   *rate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	<-ready

	player := ctx.NewPlayer(src)
	player.Play()
	time.Sleep(*dur)
	player.Pause()
	close(stop)

	if reader, err := timing.Attach(region); err == nil {
		if s, ok := reader.Snapshot(); ok {
			log.Info("played ", s.FramesPlayed, " frames, ", s.UnderrunCount, " underruns")
		}
	}
}

func buildGraph(d *graph.Driver, host *scripthost.RealtimeHost, freq, gain, drive float64, factor int, tremolo float64, rate int) error {
	osc := graph.NewOscillator(freq, graph.WaveSine, frames)
	if err := d.AddNode(osc); err != nil {
		return err
	}
	var last graph.Node = osc

	if drive > 0 {
		shaper := graph.NewWaveShaper(2, frames)
		desc := graph.WaveShaperDescription{
			Curve:      driveCurve(drive, 2048),
			Oversample: factor,
		}
		if err := shaper.ApplyDescription(desc); err != nil {
			return err
		}
		if err := d.AddNode(shaper, last); err != nil {
			return err
		}
		last = shaper
	}

	if tremolo > 0 {
		script := graph.NewScriptProcessor(1024, 1, 1, frames)
		phaseStep := tremolo / float64(rate)
		var phase float64
		host.Register(script.ID(), func(_ float64, input, output [][]float64) {
			for i := range output[0] {
				depth := 0.5 + 0.5*math.Sin(2*math.Pi*phase)
				output[0][i] = input[0][i] * depth
				phase += phaseStep
			}
		})
		if err := d.AddNode(script, last); err != nil {
			return err
		}
		last = script
	}

	out := graph.NewGain(gain, 2, frames)
	if err := d.AddNode(out, last); err != nil {
		return err
	}
	dest := graph.NewDestination(1, frames)
	return d.AddNode(dest, out)
}

func driveCurve(drive float64, points int) []float64 {
	k := 1 + 30*drive
	norm := math.Tanh(k)
	curve := make([]float64, points)
	for i := range curve {
		x := 2*float64(i)/float64(points-1) - 1
		curve[i] = math.Tanh(k*x) / norm
	}
	return curve
}

// renderSource adapts the driver to oto's pull model. Read runs on
// oto's playback goroutine, which acts as the render thread.
type renderSource struct {
	driver *graph.Driver
	writer *timing.Writer

	registered bool
	buf        [4 * frames]byte
	leftover   []byte
}

func (r *renderSource) Read(p []byte) (int, error) {
	if !r.registered {
		guard.Register(guard.RoleRender)
		r.registered = true
	}

	n := 0
	for n < len(p) {
		if len(r.leftover) == 0 {
			out := r.driver.RenderQuantum()
			r.leftover = r.encode(out.Channel(0))
		}
		c := copy(p[n:], r.leftover)
		r.leftover = r.leftover[c:]
		n += c
	}
	r.writer.Publish(r.driver.CurrentFrame(), uint64(time.Now().UnixNano()), uint64(n/4), 0)
	return n, nil
}

func (r *renderSource) encode(samples []float64) []byte {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(r.buf[4*i:], math.Float32bits(float32(v)))
	}
	return r.buf[: 4*len(samples) : 4*len(samples)]
}

// monitor attaches a timing reader to the shared region and logs one
// snapshot per second, the way an out-of-process observer would.
func monitor(log renderlog.Logger, region []byte, stop <-chan struct{}) {
	reader, err := timing.Attach(region)
	if err != nil {
		log.Warn("timing attach failed: ", err)
		return
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			if s, ok := reader.Snapshot(); ok {
				log.Debug("frames played: ", s.FramesPlayed, ", ring read: ", s.RingReadFrames)
			}
		}
	}
}
