package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/e7canasta/orion-annotate/internal/config"
	"github.com/e7canasta/orion-annotate/internal/control"
	"github.com/e7canasta/orion-annotate/internal/emitter"
	"github.com/e7canasta/orion-annotate/internal/metrics"
	"github.com/e7canasta/orion-annotate/internal/snapshot"
	"github.com/e7canasta/orion-annotate/modules/annotator"
	"github.com/e7canasta/orion-annotate/modules/controller"
	"github.com/e7canasta/orion-annotate/modules/detector"
	"github.com/e7canasta/orion-annotate/modules/detector/hog"
	"github.com/e7canasta/orion-annotate/modules/pipeline"
	"github.com/e7canasta/orion-annotate/modules/progress"
	videoio "github.com/e7canasta/orion-annotate/modules/video-io"
)

// app wires configuration, pipeline, controller and the optional outer
// surfaces (metrics server, MQTT status and control).
type app struct {
	cfg  *config.Config
	ctrl *controller.Controller

	recorder *metrics.Recorder
	server   *metrics.Server
	saver    *snapshot.FrameSaver

	mqtt     *emitter.MQTTEmitter
	reporter *emitter.Reporter
	handler  *control.Handler

	mu          sync.Mutex
	rootCtx     context.Context
	cancelRun   context.CancelFunc
	lastStarted *pipeline.Run
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	params, err := cfg.DetectorParams()
	if err != nil {
		return nil, err
	}
	// Fail fast if the classifier cannot be loaded.
	probe, err := hog.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to load people detector: %w", err)
	}
	probe.Close()

	style, err := cfg.Style()
	if err != nil {
		return nil, err
	}
	ann, err := annotator.New(style)
	if err != nil {
		return nil, err
	}

	var observers []pipeline.Observer
	if cfg.Metrics.Enabled {
		a.recorder = metrics.NewRecorder()
		observers = append(observers, a.recorder)
	}
	if cfg.Snapshot.Enabled {
		if a.saver, err = snapshot.NewFrameSaver(cfg.Snapshot); err != nil {
			return nil, err
		}
		observers = append(observers, a.saver)
	}

	sinkCfg := cfg.SinkConfig()
	runner, err := pipeline.NewRunner(pipeline.Config{
		OpenSource: func(ctx context.Context, path string) (videoio.FrameSource, error) {
			return videoio.OpenFile(ctx, path)
		},
		CreateSink: func(path string, desc videoio.StreamDescriptor) (videoio.FrameSink, error) {
			return videoio.CreateFile(path, desc, sinkCfg)
		},
		NewDetector: func() (detector.Detector, error) {
			return hog.New(params)
		},
		Annotator: ann,
		Observers: observers,
	})
	if err != nil {
		return nil, err
	}

	if a.ctrl, err = controller.New(runner, controller.WithCapacity(cfg.ChannelCapacity)); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.server = metrics.NewServer(cfg.Metrics.Addr, a.recorder, a.health)
	}
	if cfg.MQTT.Broker != "" {
		if a.mqtt, err = emitter.NewMQTTEmitter(cfg.MQTT); err != nil {
			return nil, err
		}
		a.reporter = emitter.NewReporter(a.mqtt)
	}

	return a, nil
}

// Run drives the tick loop. In one-shot mode it starts a run from the
// configured paths and returns when it finishes; in serve mode it keeps
// accepting runs until ctx is cancelled.
func (a *app) Run(ctx context.Context, serve bool) error {
	a.mu.Lock()
	a.rootCtx = ctx
	a.mu.Unlock()

	if a.server != nil {
		a.server.Start()
	}

	var bg sync.WaitGroup
	defer bg.Wait()
	bgCtx, stopBG := context.WithCancel(context.Background())
	defer stopBG()

	if a.mqtt != nil {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.mqtt.Connect(connectCtx)
		cancel()
		if err != nil {
			if !serve {
				slog.Warn("mqtt unavailable, continuing without status publishing", "error", err)
			} else {
				return err
			}
		} else {
			bg.Add(1)
			go func() {
				defer bg.Done()
				a.reporter.Run(bgCtx)
			}()

			a.handler = control.NewHandler(a.cfg.MQTT, a.mqtt.Client, control.CommandCallbacks{
				OnStart:     a.start,
				OnCancel:    a.cancel,
				OnGetStatus: a.statusData,
			})
			if err := a.handler.Start(bgCtx); err != nil {
				return err
			}
		}
	}

	if !serve {
		if err := a.start(a.cfg.Input, a.cfg.Output); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(a.cfg.TickInterval())
	defer ticker.Stop()

	line := newStatusLine(os.Stderr)
	for {
		select {
		case <-ctx.Done():
			slog.Info("received shutdown signal, waiting for active run")
			st, _ := a.ctrl.Wait(context.Background())
			a.publish(st)
			line.Finish(st)
			return a.finish(st, serve)
		case <-ticker.C:
		}

		st := a.ctrl.Tick()
		a.publish(st)
		line.Render(st)

		if st.State.Terminal() && !serve {
			line.Finish(st)
			return a.finish(st, serve)
		}
	}
}

// finish prints the one-shot summary and turns a failed run into the exit
// error. In serve mode runs are reported over MQTT only.
func (a *app) finish(st controller.Status, serve bool) error {
	if serve {
		return nil
	}
	if run := a.lastRun(st); run != nil {
		printSummary(os.Stderr, run.Stats(), a.saver)
	}
	return st.Err
}

// start launches a run on a context that the cancel command can abort.
func (a *app) start(input, output string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	runCtx, cancel := context.WithCancel(a.rootCtx)
	if err := a.ctrl.Start(runCtx, input, output); err != nil {
		cancel()
		return err
	}
	if a.cancelRun != nil {
		a.cancelRun()
	}
	a.cancelRun = cancel
	a.lastStarted = a.ctrl.Run()
	return nil
}

func (a *app) cancel() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctrl.Run() == nil || a.cancelRun == nil {
		return errors.New("no active run")
	}
	a.cancelRun()
	return nil
}

func (a *app) lastRun(st controller.Status) *pipeline.Run {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastStarted != nil && a.lastStarted.ID == st.RunID {
		return a.lastStarted
	}
	return nil
}

func (a *app) publish(st controller.Status) {
	if a.reporter != nil && a.handler != nil {
		a.reporter.Offer(st)
	}
}

func (a *app) statusData() map[string]any {
	st := a.ctrl.Status()
	data := map[string]any{
		"run_id":    st.RunID,
		"state":     st.State.String(),
		"percent":   progress.Percent(st.Fraction),
		"processed": st.Processed,
		"total":     st.Total,
		"message":   st.Message,
	}
	if st.Err != nil {
		data["error"] = st.Err.Error()
	}
	return data
}

func (a *app) health() metrics.HealthStatus {
	st := a.ctrl.Status()
	h := metrics.HealthStatus{
		Status:  "idle",
		RunID:   st.RunID,
		State:   st.State.String(),
		Percent: progress.Percent(st.Fraction),
		Message: st.Message,
	}
	if st.Active() {
		h.Status = "running"
	}
	if a.mqtt != nil {
		connected := a.mqtt.Stats().Connected
		h.MQTTConnected = &connected
		if !connected {
			h.Status = "degraded"
		}
	}
	return h
}

// Close releases the outer surfaces.
func (a *app) Close() {
	a.mu.Lock()
	if a.cancelRun != nil {
		a.cancelRun()
	}
	a.mu.Unlock()

	if a.handler != nil {
		a.handler.Stop()
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.server != nil {
		a.server.Close()
	}
}
