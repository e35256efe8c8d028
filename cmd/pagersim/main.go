// Command pagersim wires the frame manager, swap manager, and pager
// service together over a reference MMU and disk substrate, then
// drives the end-to-end fault scenarios used to validate the core
// (spec §8): a cold fault, clean-page replacement, swap exhaustion,
// an access violation, and concurrent faults under two pagers.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"vmpager/internal/config"
	"vmpager/internal/defs"
	"vmpager/internal/frame"
	"vmpager/internal/kernel"
	"vmpager/internal/mmu"
	"vmpager/internal/oommsg"
	"vmpager/internal/pager"
	"vmpager/internal/procsim"
	"vmpager/internal/swap"
	"vmpager/internal/swapdisk"
	"vmpager/internal/vmstats"

	"go.uber.org/zap"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to a pagersim YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("pagersim run failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if l, err := zap.ParseAtomicLevel(level); err == nil {
		zc.Level = l
	}
	return zc.Build()
}

type harness struct {
	cfg    *config.Config
	log    *zap.Logger
	sim    *mmu.Sim
	disk   swapdisk.Disk
	frames *frame.Manager
	swap   *swap.Manager
	stats  *vmstats.Stats
	rt     *procsim.Runtime
	svc    *pager.Service
	vec    *kernel.Vector
}

func newHarness(cfg *config.Config, log *zap.Logger) (*harness, error) {
	sim := mmu.NewSim(cfg.MMU.PageSize, cfg.MMU.Pages, cfg.MMU.Frames)

	geo := swapdisk.Geometry{
		SectorBytes:     cfg.Disk.SectorBytes,
		SectorsPerTrack: cfg.Disk.SectorsPerTrack,
		Tracks:          cfg.Disk.Tracks,
	}
	var disk swapdisk.Disk
	if cfg.Disk.Path == "" {
		disk = swapdisk.NewMemDisk(geo)
	} else {
		fd, err := swapdisk.NewFileDisk(cfg.Disk.Path, geo)
		if err != nil {
			return nil, err
		}
		disk = fd
	}

	stats := vmstats.New()
	frames := frame.NewManager(sim, stats)
	if rc := frames.Init(cfg.MMU.Pages, cfg.MMU.Frames); rc != defs.Success {
		return nil, fmt.Errorf("frame init: %s", rc)
	}
	swapMgr := swap.NewManager(disk, sim, frames, stats)
	if rc := swapMgr.Init(cfg.MMU.Pages, cfg.MMU.Frames); rc != defs.Success {
		return nil, fmt.Errorf("swap init: %s", rc)
	}

	rt := procsim.NewRuntime()
	svc := pager.NewService(sim, frames, swapMgr, stats, rt, log)
	if rc := svc.Init(cfg.Pager.NumPagers); rc != defs.Success {
		return nil, fmt.Errorf("pager init: %s", rc)
	}
	vec := kernel.NewVector(svc)

	return &harness{
		cfg: cfg, log: log, sim: sim, disk: disk,
		frames: frames, swap: swapMgr, stats: stats, rt: rt, svc: svc, vec: vec,
	}, nil
}

func (h *harness) touch(pid int, page int) pager.Result {
	offset := uint64(page) * uint64(h.cfg.MMU.PageSize)
	return h.vec.Entry(pid, kernel.PageFault, offset)
}

// watchExhaustion drains oommsg.Ch and logs each resource-exhaustion
// notification until stop is closed, playing the "observer" role the
// package doc promises.
func watchExhaustion(log *zap.Logger, stop <-chan struct{}) {
	for {
		select {
		case msg := <-oommsg.Ch:
			log.Warn("resource exhaustion", zap.Int("kind", int(msg.Kind)), zap.Int("pid", msg.Pid), zap.Int("page", msg.Page))
		case <-stop:
			return
		}
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	h, err := newHarness(cfg, log)
	if err != nil {
		return err
	}
	defer h.svc.Shutdown()

	stop := make(chan struct{})
	go watchExhaustion(log, stop)
	defer close(stop)

	// Scenario 1: cold fault on page 0.
	a := h.rt.Spawn()
	if res := h.touch(a, 0); res != pager.ResultSuccess {
		return fmt.Errorf("cold fault: unexpected result %v", res)
	}
	log.Info("cold fault resolved", zap.Int("pid", a), zap.Any("stats", h.stats.Snapshot()))

	// Scenario 2: fill both frames (a:0, b:0), then force replacements on
	// a's pages 1 and 2. No frame is marked dirty, so no page-out happens.
	b := h.rt.Spawn()
	h.touch(b, 0)
	if res := h.touch(a, 1); res != pager.ResultSuccess {
		return fmt.Errorf("first replacement fault: unexpected result %v", res)
	}
	if res := h.touch(a, 2); res != pager.ResultSuccess {
		return fmt.Errorf("replacement fault: unexpected result %v", res)
	}
	log.Info("replacement handled", zap.Any("stats", h.stats.Snapshot()))

	// Scenario 3: two processes fault concurrently under the two-pager
	// pool started by newHarness.
	d, e := h.rt.Spawn(), h.rt.Spawn()
	var wg sync.WaitGroup
	results := make([]pager.Result, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0] = h.touch(d, 0) }()
	go func() { defer wg.Done(); results[1] = h.touch(e, 0) }()
	wg.Wait()
	if results[0] != pager.ResultSuccess || results[1] != pager.ResultSuccess {
		return fmt.Errorf("concurrent faults: unexpected results %v", results)
	}
	log.Info("concurrent faults resolved", zap.Int("pid1", d), zap.Int("pid2", e))

	// Scenario 4: exhaust the swap disk. Six touches so far (a:0,1,2,
	// b:0, d:0, e:0) hold 6 of the 8 blocks Default's geometry provides;
	// two fresh processes touching a never-seen page claim the rest, and
	// a ninth distinct (pid, page) pair finds no block left.
	fillers := make([]int, 2)
	for i := range fillers {
		fillers[i] = h.rt.Spawn()
		if res := h.touch(fillers[i], 3); res != pager.ResultSuccess {
			return fmt.Errorf("swap fill %d: unexpected result %v", i, res)
		}
	}
	starved := h.rt.Spawn()
	if res := h.touch(starved, 3); res != pager.ResultOutOfSwap {
		return fmt.Errorf("swap exhaustion: unexpected result %v", res)
	}
	if h.rt.Alive(starved) {
		return fmt.Errorf("swap exhaustion: faulter still alive")
	}
	log.Info("swap exhaustion terminated faulter", zap.Int("pid", starved), zap.Any("stats", h.stats.Snapshot()))

	// Scenario 5: access violation terminates the faulter.
	c := h.rt.Spawn()
	h.sim.SetCause(c, mmu.CauseAccessViolation)
	if res := h.touch(c, 0); res != pager.ResultAccessViolation {
		return fmt.Errorf("access violation: unexpected result %v", res)
	}
	if h.rt.Alive(c) {
		return fmt.Errorf("access violation: faulter still alive")
	}
	log.Info("access violation terminated faulter", zap.Int("pid", c))

	time.Sleep(10 * time.Millisecond)
	log.Info("final stats", zap.Any("stats", h.stats.Snapshot()))
	return nil
}
