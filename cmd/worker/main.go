package main

import (
	"log"

	"researchmind/internal/activities"
	"researchmind/internal/config"
	"researchmind/internal/vectorstore"
	"researchmind/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	store, err := vectorstore.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()
	a, err := activities.New(cfg, store)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	log.Printf("researchmind worker listening on %s queue=%s store=%s embed_providers=%q", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.StoreBackend, cfg.EmbedProviders)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}
