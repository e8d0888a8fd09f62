package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/kendra"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"rag-portal/handler"
	"rag-portal/internal/appconfig"
	"rag-portal/internal/integrations/bedrock"
	"rag-portal/internal/integrations/kendrasearch"
	"rag-portal/internal/integrations/objectstore"
	"rag-portal/internal/session"
	"rag-portal/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.Default()

	// ---- Configuration (read only here) ----
	_ = godotenv.Load()
	indexID := mustEnv("KENDRA_INDEX_ID")
	bucket := mustEnv("BUCKET_NAME")
	profile := os.Getenv("AWS_PROFILE")
	port := envInt("PORT", 8080)

	// ---- AWS SDK config ----
	// Adaptive retry with a bounded attempt count is the throttling
	// mitigation for Converse; it applies to all clients built from cfg.
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(appconfig.Region),
		config.WithRetryer(func() aws.Retryer {
			return retry.NewAdaptiveMode(func(o *retry.AdaptiveModeOptions) {
				o.StandardOptions = append(o.StandardOptions, func(so *retry.StandardOptions) {
					so.MaxAttempts = appconfig.RetryMaxAttempts
				})
			})
		}),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	searchClient, err := kendrasearch.New(kendra.NewFromConfig(cfg), indexID)
	if err != nil {
		slog.Error("failed to create kendra client", "err", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(cfg)
	storeClient, err := objectstore.New(s3Client, s3.NewPresignClient(s3Client), bucket)
	if err != nil {
		slog.Error("failed to create object store client", "err", err)
		os.Exit(1)
	}
	llmClient, err := bedrock.New(bedrockruntime.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create bedrock client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(searchClient, storeClient, llmClient, logger)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(chatService, session.NewStore(), logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	srv := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Session-Id"},
		ExposedHeaders: []string{"X-Session-Id"},
	}).Handler(h.Router())

	addr := ":" + strconv.Itoa(port)
	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
