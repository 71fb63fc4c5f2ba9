// Command layercomp provisions the rendering engine and composites PNG
// layers into a PNG file.
//
// Usage:
//
//	layercomp provision [-config file.toml] [-bundle dir] [-v]
//	layercomp render [-config file.toml] [-width W] [-height H] [-out out.png] [-gpu] [-v] layer.png[@x,y[,w,h]] ...
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/compositor"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s provision [-config file.toml] [-bundle dir] [-v]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s render [-config file.toml] [-width W] [-height H] [-out out.png] [-gpu] [-v] layer.png[@x,y[,w,h]] ...\n", os.Args[0])
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("layercomp: ")
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "provision":
		err = runProvision(ctx, os.Args[2:])
	case "render":
		err = runRender(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// setVerbose routes library logging to stderr.
func setVerbose(v bool) *slog.Logger {
	if !v {
		return nil
	}
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	compositor.SetLogger(l)
	return l
}
