// main.go - entry point: parse flags, build a Game against a data
// directory, start the ebiten host, and run the VM's frame loop on a
// background goroutine the way the window owns the calling goroutine.

package main

import (
	"os"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	SetupLogging(cfg.LogLevel)

	sink, err := NewEbitenHostSink(cfg.Fullscreen)
	if err != nil {
		logger.Fatal("failed to initialize audio/video host", "err", err)
	}

	game, err := NewGame(cfg.DataDir, sink, cfg.EgaPal, true)
	if err != nil {
		logger.Fatal("failed to load game data", "err", err)
	}

	game.RestartFromScene(cfg.Scene)

	go func() {
		for {
			game.RunFrame()
			if sink.PollInput().Quit {
				os.Exit(0)
			}
		}
	}()

	if err := sink.Run(); err != nil && err != ebiten.Termination {
		logger.Fatal("host exited with error", "err", err)
	}
}
