// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devblok/kanvas/canvas"
	"github.com/devblok/kanvas/canvas/raster"
	"github.com/devblok/kanvas/capture"
	"github.com/devblok/kanvas/config"
	"github.com/devblok/kanvas/core"
	"github.com/devblok/kanvas/device"
	"github.com/devblok/kanvas/gfx/vkr"
	"github.com/devblok/kanvas/swapchain"
	"github.com/devblok/kanvas/window/sdlwin"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var frameCounter int64

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	capturePath  = flag.String("capture", "", "Record drawn frames into a capture archive")
	envFile      = flag.String("env", "", "Load configuration from an env file")
	maxFrames    = flag.Uint64("frames", 0, "Quit after this many frames, 0 runs until closed")
	verbose      = flag.Bool("v", false, "Log every frame")
)

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	configuration, err := config.Load(files...)
	if err != nil {
		log.Fatal(err)
	}
	if *debug {
		configuration.Device.Validation = true
	}
	if *capturePath != "" {
		configuration.Capture.Path = *capturePath
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		defer trace.Stop()
	}

	if err := run(configuration); err != nil {
		log.WithError(err).Error("kanvas exited")
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		f.Close()
	}
}

func run(configuration core.Configuration) error {
	logger := log.StandardLogger()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return err
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return err
	}
	defer sdl.VulkanUnloadLibrary()

	win, err := sdlwin.New(configuration.Window.Title, configuration.Window.Width, configuration.Window.Height)
	if err != nil {
		return err
	}
	defer win.Destroy()

	api, err := vkr.NewAPI(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}

	ctx, err := device.New(api, win, configuration.Device, logger)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	bridge := canvas.NewBridge(raster.New(ctx.Device(), logger), logger)
	swapchains := swapchain.NewManager(ctx, configuration.Swapchain, logger)
	renderer, err := core.NewRenderer(ctx, win, swapchains, bridge, configuration.Renderer, logger)
	if err != nil {
		swapchains.Close()
		return err
	}
	defer renderer.Destroy()

	if path := configuration.Capture.Path; path != "" {
		rec, err := capture.NewRecorder(capture.Header{
			Author:      configuration.Window.Title,
			DateCreated: time.Now().Unix(),
			Version:     capture.Version,
		}, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		defer func() {
			if err := rec.Save(path); err != nil {
				logger.WithError(err).Error("saving capture")
			}
		}()
		renderer.Observe(rec.Observe)
	}

	var app core.AppControl
	renderer.OnFatal(func(err error) {
		app.Terminate()
	})

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	counterCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go countFrames(counterCtx, &wg)
	defer func() {
		cancel()
		wg.Wait()
	}()

	scene := newScene()
	draw := func(c canvas.Canvas, t core.FrameTiming) {
		scene.draw(c, t)
		if *maxFrames > 0 && t.FrameCount >= *maxFrames {
			app.Terminate()
		}
	}

	// Frames and events share the thread that owns the window.
	for !app.ShouldTerminate() {
		select {
		case <-timeService.FpsTicker().C:
			if err := renderer.Frame(draw); err != nil {
				return err
			}
			atomic.AddInt64(&frameCounter, 1)
		case <-timeService.EventTicker().C:
			for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						app.Terminate()
					}
				case *sdl.QuitEvent:
					app.Terminate()
				}
			}
		}
	}

	log.Println("Event loop exited")
	return renderer.Err()
}

func countFrames(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
			// 200 ms * 5 = 1s, therefore we need to multiply the count
			currentCount := atomic.SwapInt64(&frameCounter, 0)
			fmt.Printf("\r\033[2KFrame count: %d\tCGO calls: %d", currentCount*5, runtime.NumCgoCall())
		}
	}
}
