package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soundstage/internal/logger"
	"soundstage/internal/util"
	"soundstage/pkg/clip"
	"soundstage/pkg/config"
	"soundstage/pkg/engine"
	"soundstage/pkg/mixer"
	"soundstage/pkg/registry"
	"soundstage/pkg/timeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, cfgErr := config.LoadConfig(*configPath)
	log := newLog(cfg.Logging)
	defer log.Close()

	log.Info("Starting soundstage...")
	if cfgErr != nil {
		log.Warnf("%v", cfgErr)
	}

	store := clip.NewStore(cfg.Assets.Root, log)

	var reg *registry.Registry
	demo := !util.FileExists(cfg.Assets.Registry)
	if demo {
		log.Warnf("No sound registry at %s, synthesizing the demo catalog", cfg.Assets.Registry)
		reg = demoCatalog(cfg.Audio, log)
	} else {
		var err error
		reg, err = registry.LoadAsset(cfg.Assets.Registry, store, log)
		if err != nil {
			log.Fatalf("Failed to load sound registry: %v", err)
		}
	}

	eng := engine.New(cfg.Audio, reg, log)
	if err := eng.Start(); err != nil {
		log.Fatalf("Failed to start audio output: %v", err)
	}
	defer eng.Shutdown()

	mix := buildMixer(cfg, demo, eng, log)
	player := buildTimeline(cfg, demo, eng, reg, log)
	if mix != nil && player != nil {
		wireCallbacks(player, mix, log)
	}

	if mix != nil {
		mix.StartMusic()
	}
	if player != nil {
		if err := player.Play(); err != nil {
			log.Errorf("Failed to start timeline: %v", err)
			player = nil
		}
	}

	run(cfg.Audio, eng, mix, player, log)
}

// newLog builds the root logger: console only, or console plus file when
// the config names a log file
func newLog(cfg config.LoggingConfig) *logger.Logger {
	if cfg.File != "" {
		l, err := logger.NewMultiLogger(cfg.Level, cfg.File)
		if err == nil {
			return l
		}
		fallback := logger.NewLogger(cfg.Level)
		fallback.Warnf("Failed to open log file %s: %v", cfg.File, err)
		return fallback
	}
	return logger.NewLogger(cfg.Level)
}

func buildMixer(cfg *config.Config, demo bool, eng *engine.Engine, log *logger.Logger) *mixer.Mixer {
	switch {
	case cfg.Assets.MixerSetup != "":
		setup, err := mixer.LoadSetup(cfg.Assets.MixerSetup)
		if err != nil {
			log.Errorf("Failed to load mixer setup: %v", err)
			return nil
		}
		return mixer.New(setup, eng, log)
	case demo:
		return mixer.New(demoSetup(), eng, log)
	default:
		return nil
	}
}

func buildTimeline(cfg *config.Config, demo bool, eng *engine.Engine, reg *registry.Registry, log *logger.Logger) *timeline.Player {
	switch {
	case cfg.Assets.Timeline != "":
		asset, err := timeline.LoadAsset(cfg.Assets.Timeline)
		if err != nil {
			log.Errorf("Failed to load timeline: %v", err)
			return nil
		}
		return timeline.NewPlayer(asset, eng, reg, log)
	case demo:
		return timeline.NewPlayer(demoTimeline(), eng, reg, log)
	default:
		return nil
	}
}

// wireCallbacks drives the layered mixer from timeline markers so the
// arrangement evolves as the timeline loops
func wireCallbacks(player *timeline.Player, mix *mixer.Mixer, log *logger.Logger) {
	player.OnBeat(func(b timeline.Beat) {
		if b.InBar == 0 {
			log.Debugf("Bar %d", b.Bar)
		}
	})
	player.OnMarker(func(m timeline.Marker) {
		log.Infof("Marker %q at beat %d", m.Name, m.Beat)
		switch m.Name {
		case "verse":
			mix.SetVariable("intensity", 1)
		case "drop":
			mix.SetVariable("intensity", 2)
		case "outro":
			mix.SetVariable("intensity", 0)
		}
	})
}

func run(cfg config.AudioConfig, eng *engine.Engine, mix *mixer.Mixer, player *timeline.Player, log *logger.Logger) {
	hz := cfg.UpdateHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Info("Running, press Ctrl+C to stop")
	for {
		select {
		case <-ticker.C:
			tick(eng, mix, player)
			if player != nil && !player.Playing() {
				log.Info("Timeline finished")
				if mix != nil {
					mix.StopMusic(cfg.DefaultFade)
				}
				drain(cfg, eng, mix, player, ticker)
				return
			}
		case <-sig:
			log.Info("Shutting down...")
			if player != nil {
				player.Stop()
			}
			if mix != nil {
				mix.StopMusic(cfg.DefaultFade)
			}
			drain(cfg, eng, mix, player, ticker)
			return
		}
	}
}

// drain keeps ticking until the stop fades have played out
func drain(cfg config.AudioConfig, eng *engine.Engine, mix *mixer.Mixer, player *timeline.Player, ticker *time.Ticker) {
	deadline := time.Now().Add(time.Duration((cfg.DefaultFade + 0.1) * float64(time.Second)))
	for time.Now().Before(deadline) {
		<-ticker.C
		tick(eng, mix, player)
	}
}

func tick(eng *engine.Engine, mix *mixer.Mixer, player *timeline.Player) {
	eng.Update()
	if mix != nil {
		mix.Update()
	}
	if player != nil {
		player.Update()
	}
}
