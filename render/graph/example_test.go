package graph_test

import (
	"fmt"

	"github.com/cwbudde/algo-render/render/graph"
	"github.com/cwbudde/algo-render/render/scripthost"
)

// Build a small offline graph: an oscillator shaped by a script
// callback, rendered one quantum at a time.
func Example() {
	const (
		sampleRate = 48000.0
		frames     = 128
	)

	host := scripthost.NewOfflineHost()
	d := graph.NewDriver(sampleRate, frames, host)

	osc := graph.NewOscillator(0, graph.WaveSquare, frames) // constant +1
	script := graph.NewScriptProcessor(256, 1, 1, frames)
	dest := graph.NewDestination(2, frames)

	host.Register(script.ID(), func(_ float64, input, output [][]float64) {
		for i := range output[0] {
			output[0][i] = 0.25 * input[0][i]
		}
	})

	d.AddNode(osc)
	d.AddNode(script, osc)
	d.AddNode(dest, script)

	// The first script buffer renders as silence while block zero is
	// being accumulated.
	first := d.RenderQuantum()
	fmt.Println("frame 0:", first.Channel(0)[0])

	var out float64
	for d.CurrentFrame() < 512 {
		out = d.RenderQuantum().Channel(0)[0]
	}
	fmt.Println("steady state:", out)

	// Output:
	// frame 0: 0
	// steady state: 0.25
}
