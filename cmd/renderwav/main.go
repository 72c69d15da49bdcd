// Command renderwav renders a small offline graph to a WAV file.
//
// The graph is oscillator -> waveshaper -> optional Lua script ->
// gain -> destination. Script blocks run inline through the offline
// host, so a Lua script sees every block exactly once and the output
// is deterministic.
//
// Usage:
//
//	renderwav [flags]
//
// Examples:
//
//	renderwav -out tone.wav -freq 220 -dur 3s
//	renderwav -out drive.wav -drive 0.8 -oversample 4
//	renderwav -out scripted.wav -script tremolo.lua -script-buffer 1024
//
// A Lua script must define a function
//
//	process(input, output, frames, time)
//
// where input and output are tables of channel tables indexed from 1.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	lua "github.com/yuin/gopher-lua"

	"github.com/cwbudde/algo-render/internal/renderlog"
	"github.com/cwbudde/algo-render/render/graph"
	"github.com/cwbudde/algo-render/render/scripthost"
)

const frames = 128

func main() {
	var (
		outPath      = flag.String("out", "out.wav", "output WAV path")
		dur          = flag.Duration("dur", 2*time.Second, "render duration")
		rate         = flag.Int("rate", 48000, "sample rate in Hz")
		freq         = flag.Float64("freq", 440, "oscillator frequency in Hz")
		waveName     = flag.String("wave", "sine", "waveform: sine, square, saw, triangle")
		gain         = flag.Float64("gain", 0.5, "output gain")
		drive        = flag.Float64("drive", 0, "waveshaper drive in [0, 1), 0 disables shaping")
		factor       = flag.Int("oversample", 1, "waveshaper oversampling: 1, 2 or 4")
		scriptPath   = flag.String("script", "", "Lua script processing each block")
		scriptBuffer = flag.Int("script-buffer", 1024, "script block size in frames")
		bits         = flag.Int("bits", 16, "output bit depth")
	)
	flag.Parse()
	log := renderlog.GetLogger()

	if err := run(*outPath, *dur, *rate, *freq, *waveName, *gain, *drive, *factor, *scriptPath, *scriptBuffer, *bits); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(outPath string, dur time.Duration, rate int, freq float64, waveName string, gain, drive float64, factor int, scriptPath string, scriptBuffer, bits int) error {
	wave, err := parseWave(waveName)
	if err != nil {
		return err
	}

	host := scripthost.NewOfflineHost()
	d := graph.NewDriver(float64(rate), frames, host)

	osc := graph.NewOscillator(freq, wave, frames)
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

	var vm *lua.LState
	if scriptPath != "" {
		vm = lua.NewState()
		defer vm.Close()
		if err := vm.DoFile(scriptPath); err != nil {
			return fmt.Errorf("load script: %w", err)
		}
		script := graph.NewScriptProcessor(scriptBuffer, 1, 1, frames)
		if script.Degraded() {
			return fmt.Errorf("script buffer size %d is invalid", scriptBuffer)
		}
		host.Register(script.ID(), luaCallback(vm))
		if err := d.AddNode(script, last); err != nil {
			return err
		}
		last = script
	}

	out := graph.NewGain(gain, 2, frames)
	if err := d.AddNode(out, last); err != nil {
		return err
	}
	dest := graph.NewDestination(2, frames)
	if err := d.AddNode(dest, out); err != nil {
		return err
	}

	total := int(dur.Seconds() * float64(rate))
	return writeWAV(outPath, d, total, rate, bits)
}

func parseWave(name string) (graph.Waveform, error) {
	switch name {
	case "sine":
		return graph.WaveSine, nil
	case "square":
		return graph.WaveSquare, nil
	case "saw":
		return graph.WaveSawtooth, nil
	case "triangle":
		return graph.WaveTriangle, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

// driveCurve builds a tanh saturation curve. drive near 1 approaches a
// hard clip.
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

// luaCallback bridges one script node to the Lua VM. Lua errors fail
// the block, which renders as silence.
func luaCallback(vm *lua.LState) scripthost.Callback {
	return func(playbackTime float64, input, output [][]float64) {
		fn := vm.GetGlobal("process")
		if fn == lua.LNil {
			panic("script defines no process function")
		}
		inTab := blockToLua(vm, input)
		outTab := blockToLua(vm, output)
		err := vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, inTab, outTab, lua.LNumber(len(output[0])), lua.LNumber(playbackTime))
		if err != nil {
			panic(err)
		}
		luaToBlock(outTab, output)
	}
}

func blockToLua(vm *lua.LState, block [][]float64) *lua.LTable {
	channels := vm.NewTable()
	for _, ch := range block {
		tab := vm.NewTable()
		for i, v := range ch {
			tab.RawSetInt(i+1, lua.LNumber(v))
		}
		channels.Append(tab)
	}
	return channels
}

func luaToBlock(channels *lua.LTable, block [][]float64) {
	for c := range block {
		tab, ok := channels.RawGetInt(c + 1).(*lua.LTable)
		if !ok {
			continue
		}
		for i := range block[c] {
			if v, ok := tab.RawGetInt(i + 1).(lua.LNumber); ok {
				block[c][i] = float64(v)
			}
		}
	}
}

func writeWAV(path string, d *graph.Driver, totalFrames, rate, bits int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e := wav.NewEncoder(f, rate, bits, 1, 1)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		SourceBitDepth: bits,
		Data:           make([]int, frames),
	}
	scale := float64(int(1)<<(bits-1) - 1)

	for rendered := 0; rendered < totalFrames; rendered += frames {
		out := d.RenderQuantum()
		ch := out.Channel(0)
		n := min(frames, totalFrames-rendered)
		for i := 0; i < n; i++ {
			v := ch[i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			ib.Data[i] = int(v * scale)
		}
		ib.Data = ib.Data[:n]
		if err := e.Write(ib); err != nil {
			return err
		}
		ib.Data = ib.Data[:frames]
	}
	return e.Close()
}
