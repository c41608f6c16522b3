// Command tubeserve serves the outline to rig pipeline over HTTP.
package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"tubegen/internal/config"
	"tubegen/internal/pipeline"
	"tubegen/internal/preview"
	"tubegen/internal/server"
)

func main() {
	addr := flag.String("addr", ":3333", "Listen address")
	configFile := flag.String("config", "", "Path to config.json file")
	flag.Parse()

	pipeline.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal(err)
		}
	}
	if err := cfg.Resolve(config.Flags{}); err != nil {
		log.Fatal(err)
	}

	router := server.NewRouter(server.Options{
		Params: cfg.Params,
		Source: cfg.Source(),
		Preview: preview.Options{
			Size:        cfg.RenderSize,
			Supersample: cfg.Supersample,
			Perspective: cfg.Perspective,
		},
	})
	log.Printf("listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, router))
}
