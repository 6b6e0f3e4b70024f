package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"voice-agent-eval-platform/backend/internal/apigateway"
	"voice-agent-eval-platform/backend/internal/configmanagement"
	"voice-agent-eval-platform/backend/internal/coreengine/evaluationengine"
	"voice-agent-eval-platform/backend/internal/coreengine/judgescorer"
	"voice-agent-eval-platform/backend/internal/coreengine/provideradapters"
	"voice-agent-eval-platform/backend/internal/datastore"
	"voice-agent-eval-platform/backend/internal/objectstore"
	"voice-agent-eval-platform/backend/internal/runmanagement"
	"voice-agent-eval-platform/backend/internal/transcription"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Database connection from environment. For local dev a typical setup is
	// DB_SSLMODE=disable against a dockerized Postgres.
	dbHost := getenv("DB_HOST", "localhost")
	dbPort := getenv("DB_PORT", "5432")
	dbUser := getenv("DB_USER", "postgres")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := getenv("DB_NAME", "voice_eval_db")
	dbSSLMode := getenv("DB_SSLMODE", "disable")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD environment variable not set.")
	}

	dataSourceName := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	db, err := datastore.Open(dataSourceName)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	store := datastore.New(db)

	// Audio object storage (MinIO). Optional: without an endpoint the engine
	// runs text-only and skips audio persistence.
	var audio evaluationengine.AudioStore
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		audioStore, err := objectstore.NewAudioStore(context.Background(), objectstore.Config{
			Endpoint:        endpoint,
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_ACCESS_KEY"),
			BucketName:      getenv("MINIO_BUCKET_NAME", "eval-audio"),
			UseSSL:          os.Getenv("MINIO_USE_SSL") == "true",
		})
		if err != nil {
			log.Fatalf("Failed to initialize MinIO client: %v", err)
		}
		audio = audioStore
	} else {
		log.Println("MINIO_ENDPOINT not set; response audio will not be persisted.")
	}

	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Println("WARNING: OPENAI_API_KEY not set; LLM judging and transcription will fail.")
	}

	judge := judgescorer.NewScorer(judgescorer.NewOpenAIJudgeClient(openaiKey, nil))
	var transcriber transcription.Transcriber = transcription.NewWhisperTranscriber(openaiKey, nil)

	orchestrator := evaluationengine.NewOrchestrator(evaluationengine.Config{
		Runs:        store,
		Scenarios:   store,
		Providers:   store,
		Results:     store,
		Audio:       audio,
		Registry:    provideradapters.NewDefaultRegistry(),
		Judge:       judge,
		Transcriber: transcriber,
	})

	runService := runmanagement.NewRunService(store, orchestrator)

	router := apigateway.SetupRouter(apigateway.Handlers{
		Scenarios: configmanagement.NewScenarioHandlers(store),
		Providers: configmanagement.NewProviderHandlers(store),
		Runs:      runmanagement.NewHandlers(runService, store),
	})

	serverPort := getenv("SERVER_PORT", "8080")
	log.Printf("Starting server on :%s", serverPort)
	if err := router.Run(":" + serverPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
