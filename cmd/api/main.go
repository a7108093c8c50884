package main

import (
	"log"
	"net/http"

	"researchmind/internal/api"
	"researchmind/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	s, err := api.NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("researchmind api listening on %s store=%s llm_providers=%q embed_providers=%q", cfg.APIAddr, cfg.StoreBackend, cfg.LLMProviders, cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, s.Routes()); err != nil {
		log.Fatal(err)
	}
}
