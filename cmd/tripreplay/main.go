// Command tripreplay plays a route file back in the terminal at a chosen
// speed and optionally saves a PNG snapshot of the finished trip.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fogleman/gg"
	"github.com/schollz/progressbar/v3"

	"trip-playback/internal/panel"
	"trip-playback/internal/playback"
	"trip-playback/internal/publisher"
	"trip-playback/internal/render"
	"trip-playback/internal/routefile"
)

const barSteps = 1000

// consolePublisher reports passed stops and drives the progress bar.
type consolePublisher struct {
	bar *progressbar.ProgressBar
}

func (c *consolePublisher) PublishPosition(_ string, msg publisher.PositionMessage) error {
	return c.bar.Set(int(msg.Progress * barSteps))
}

func (c *consolePublisher) PublishNotice(_ string, msg publisher.NoticeMessage) error {
	switch msg.Kind {
	case "stop_passed":
		c.bar.Describe(fmt.Sprintf("passed stop %s", msg.StopID))
	case "completed":
		c.bar.Describe("arrived")
	}
	return nil
}

func main() {
	routePath := flag.String("route", "", "route file (.gpx, .geojson or .json)")
	speed := flag.Float64("speed", panel.DefaultSpeed, "playback speed in meters per second")
	tick := flag.Duration("tick", time.Second, "tick interval")
	pngOut := flag.String("png", "", "write a snapshot of the finished trip to this file")
	flag.Parse()

	if *routePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	name, in, err := routefile.Load(*routePath)
	if err != nil {
		log.Fatalf("Error loading route: %v", err)
	}
	if len(in.Paths) < 2 {
		log.Fatal("Not enough points in route file.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bar := progressbar.Default(barSteps, name)
	p := panel.New(ctx, panel.Config{
		ID:        name,
		RouteName: name,
		Interval:  *tick,
		Speed:     *speed,
		MinSpeed:  0.1,
		MaxSpeed:  1e6,
		Clock:     playback.SystemClock{},
		Publisher: &consolePublisher{bar: bar},
	}, in)
	defer p.Close()

	views, unsubscribe := p.Subscribe()
	defer unsubscribe()
	if err := p.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	var last panel.View
	for done := false; !done; {
		select {
		case <-ctx.Done():
			log.Println("interrupted")
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			last = v
			done = v.State == playback.Completed
		}
	}
	_ = bar.Finish()

	fmt.Printf("\n%s: %.0f m in %s\n", name, last.Total, time.Since(p.Snapshot().StartedAt).Round(time.Second))
	if last.Notice != nil {
		fmt.Println(last.Notice.Message)
	}
	if *pngOut != "" {
		img, err := render.Draw(last, render.DefaultOptions())
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		if err := gg.SavePNG(*pngOut, img); err != nil {
			log.Fatalf("save %s: %v", *pngOut, err)
		}
		log.Printf("Saved %s", *pngOut)
	}
}
