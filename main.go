// Package main provides the chip-quant command: fluorescence quantification
// of button/chamber microfluidic devices from a run file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chip-quant/internal/chip"
	"chip-quant/internal/pipeline"
	"chip-quant/internal/review"
	"chip-quant/internal/version"
	reviewui "chip-quant/ui/review"

	"fyne.io/fyne/v2/app"
)

const appTitle = "chip-quant"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	interactive := flag.Bool("review", false, "open the interactive correction window")
	transcript := flag.String("transcript", "", "review transcript file (overrides the run file)")
	workers := flag.Int("workers", 0, "parallel workers (0 = all CPUs)")
	listChips := flag.Bool("chips", false, "list registered chip specs and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listChips {
		for _, name := range chip.ListSpecs() {
			fmt.Println(name)
		}
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] run.chipquant\n", appTitle)
		flag.PrintDefaults()
		os.Exit(2)
	}

	log.Printf("Starting %s", version.String())

	cfg, err := pipeline.LoadConfig(flag.Arg(0))
	if err != nil {
		log.Fatalf("run file: %v", err)
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *transcript != "" {
		cfg.TranscriptPath = *transcript
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *interactive {
		if err := runInteractive(ctx, cfg); err != nil {
			exitOn(err)
		}
		return
	}
	if err := runHeadless(ctx, cfg); err != nil {
		exitOn(err)
	}
}

// runHeadless executes the pipeline with a recorded transcript, or with no
// review at all when none is configured.
func runHeadless(ctx context.Context, cfg *pipeline.Config) error {
	var src review.CommandSource
	if cfg.TranscriptPath != "" {
		script, err := review.LoadTranscript(cfg.TranscriptPath)
		if err != nil {
			return err
		}
		src = script
	} else {
		log.Println("no transcript configured; skipping review")
	}

	_, err := pipeline.Run(ctx, cfg, src)
	return err
}

// runInteractive localizes first, then drives review through the fyne
// window while the pipeline blocks on it from a worker goroutine.
func runInteractive(ctx context.Context, cfg *pipeline.Config) error {
	spec, err := chip.GetSpec(cfg.Chip)
	if err != nil {
		return err
	}
	set, err := pipeline.LoadChannels(cfg)
	if err != nil {
		return err
	}
	res, err := pipeline.Localize(ctx, *spec, cfg, set)
	if err != nil {
		return err
	}

	fyneApp := app.New()
	win := reviewui.New(fyneApp, set, res.Table, spec.MaxIntensity)
	win.Show()

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Finish(ctx, cfg, res, win)
		win.Close()
	}()

	fyneApp.Run()
	return <-done
}

func exitOn(err error) {
	if errors.Is(err, review.ErrAborted) {
		log.Println("review aborted; no output written")
		os.Exit(1)
	}
	log.Fatalf("run failed: %v", err)
}
