package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4/middleware"

	"closetapi/controllers"
	"closetapi/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              services.GetEnv("SENTRY_DSN", ""),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "closetapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	settings := services.NewSettingsFromEnv()

	var awsService services.AWSServiceProvider
	if settings.UseR2 {
		service := &services.AWSService{}
		if err := service.InitClients(ctx, settings); err != nil {
			log.Fatal("Failed to initialize AWS provider: R2")
		}
		awsService = service
	}

	records := services.NewRecordStore(ctx, settings)
	blobs := services.NewBlobStore(ctx, settings, awsService)

	urlCache, err := services.NewURLCacheService(blobs, settings.DownloadURLExpiry)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}

	gemini, err := services.NewGeminiGenerator(ctx, settings)
	if err != nil {
		log.Fatalf("failed to initialize gemini client: %v", err)
	}

	var textGenerator services.TextGenerator = gemini
	if strings.ToLower(settings.DefaultStyler) == "openai" {
		openaiGenerator, err := services.NewOpenAIGenerator(settings)
		if err != nil {
			log.Printf("openai styler requested but unavailable, using gemini: %v", err)
		} else {
			textGenerator = openaiGenerator
		}
	}

	e := controllers.SetupServer(settings, records, blobs, gemini, textGenerator, urlCache)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":" + services.GetEnv("PORT", "8083")))
}
