package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/TomHuangsrc/umi/datarecording"
	"github.com/TomHuangsrc/umi/lumi"
	"github.com/TomHuangsrc/umi/monitoring"
	"github.com/TomHuangsrc/umi/sim"
	"github.com/TomHuangsrc/umi/stim"
	"github.com/TomHuangsrc/umi/tracing"
	"github.com/TomHuangsrc/umi/umimem"
)

var replayFlags struct {
	width      int
	credits    int
	latency    int
	fifoDepth  int
	freqGHz    float64
	monitor    bool
	record     string
	verbose    bool
	memCapsize uint64
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace-file>",
	Short: "Replay a UMI transaction trace through a link to a memory model",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.IntVar(&replayFlags.width, "width", 8,
		"link width in bytes, power of two up to 32")
	f.IntVar(&replayFlags.credits, "credits", 16,
		"initial credits per channel")
	f.IntVar(&replayFlags.latency, "latency", 4,
		"memory access latency in cycles")
	f.IntVar(&replayFlags.fifoDepth, "fifo-depth", 4,
		"depth of the clock-crossing fifos")
	f.Float64Var(&replayFlags.freqGHz, "freq", 1.0,
		"clock frequency in GHz")
	f.BoolVar(&replayFlags.monitor, "monitor", false,
		"serve the monitoring dashboard and open it in a browser")
	f.StringVar(&replayFlags.record, "record",
		envOr("UMILINK_RECORDING", ""),
		"record packet traces to this SQLite database")
	f.BoolVar(&replayFlags.verbose, "verbose", false,
		"log every packet to stderr")
	f.Uint64Var(&replayFlags.memCapsize, "mem-capacity", 1<<32,
		"memory capacity in bytes")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(_ *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := stim.ReadTrace(file)
	if err != nil {
		return fmt.Errorf("reading trace %s: %w", args[0], err)
	}

	engine := sim.NewSerialEngine()
	freq := sim.Freq(replayFlags.freqGHz) * sim.GHz

	replayer := stim.NewReplayer("Replayer", engine, freq, records)

	hostLink := lumi.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithWidth(replayFlags.width).
		WithInitialCredits(replayFlags.credits).
		Build("HostLink")
	devLink := lumi.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithWidth(replayFlags.width).
		WithInitialCredits(replayFlags.credits).
		Build("DevLink")
	lumi.ConnectEndpoints("Link", hostLink, devLink, replayFlags.fifoDepth)

	mem := umimem.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithLatency(replayFlags.latency).
		WithCapacity(replayFlags.memCapsize).
		Build("Mem")

	hostConn := sim.NewDirectConnection("HostConn", engine, freq)
	hostConn.PlugIn(replayer.ReqPort)
	hostConn.PlugIn(replayer.RspPort)
	hostConn.PlugIn(hostLink.ReqPort)
	hostConn.PlugIn(hostLink.RspPort)

	devConn := sim.NewDirectConnection("DevConn", engine, freq)
	devConn.PlugIn(devLink.ReqPort)
	devConn.PlugIn(devLink.RspPort)
	devConn.PlugIn(mem.TopPort)

	replayer.SetRequestDestination(hostLink.ReqPort)
	hostLink.SetResponseDestination(replayer.RspPort)
	devLink.SetRequestDestination(mem.TopPort)
	mem.SetResponseDestination(devLink.RspPort)

	setUpTracing(engine, replayer, mem)

	if replayFlags.monitor {
		monitor := monitoring.NewMonitor()
		monitor.RegisterEngine(engine)
		monitor.RegisterComponent(replayer)
		monitor.RegisterComponent(hostLink)
		monitor.RegisterComponent(devLink)
		monitor.RegisterComponent(mem)

		bar := monitor.CreateProgressBar("Trace replay", uint64(len(records)))
		tracing.CollectTrace(replayer.ReqPort, engine,
			replayProgressTracer{bar})

		monitor.StartServer(true)
	}

	replayer.TickLater()
	if err := engine.Run(); err != nil {
		return err
	}

	if !replayer.Done() {
		return fmt.Errorf("link stalled at %.10fs with transactions pending",
			engine.CurrentTime())
	}

	fmt.Printf("replayed %d records, %d responses, finished at %.10fs\n",
		len(records), len(replayer.Responses), engine.CurrentTime())

	return nil
}

// replayProgressTracer advances the dashboard bar once per request that
// leaves the replayer.
type replayProgressTracer struct {
	bar *monitoring.ProgressBar
}

func (t replayProgressTracer) OnPacket(e tracing.PacketEvent) {
	if e.Dir == "send" {
		t.bar.AddCompleted(1)
	}
}

func setUpTracing(
	engine sim.Engine,
	replayer *stim.Replayer,
	mem *umimem.Comp,
) {
	if replayFlags.record != "" {
		recorder := datarecording.New(replayFlags.record)
		tracer := tracing.NewDBTracer(recorder)
		tracing.CollectTrace(replayer.ReqPort, engine, tracer)
		tracing.CollectTrace(replayer.RspPort, engine, tracer)
		tracing.CollectTrace(mem.TopPort, engine, tracer)
	}

	if replayFlags.verbose {
		tracer := tracing.NewLogTracer(
			log.New(os.Stderr, "", log.Lmicroseconds))
		tracing.CollectTrace(replayer.ReqPort, engine, tracer)
		tracing.CollectTrace(replayer.RspPort, engine, tracer)
	}
}
