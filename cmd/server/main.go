package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jessetechgeek/shopilent-sub006/internal/cache"
	h "github.com/jessetechgeek/shopilent-sub006/internal/http"
	"github.com/jessetechgeek/shopilent-sub006/internal/pricing"
	"github.com/jessetechgeek/shopilent-sub006/internal/publisher"
	"github.com/jessetechgeek/shopilent-sub006/internal/repository"
	"github.com/jessetechgeek/shopilent-sub006/internal/service"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Postgres repository.Credentials

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PricingURL     string
	StaticTaxRate  string
	StaticShipping string
	PricingTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "internal/repository/migrations"),
		},
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:   time.Duration(getEnvInt("CART_CACHE_TTL_MINUTES", 15)) * time.Minute,
		KafkaBrokers:   strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "storefront-outbox"),
		PricingURL:     getEnv("PRICING_SERVICE_URL", ""),
		StaticTaxRate:  getEnv("STATIC_TAX_RATE", "0.08"),
		StaticShipping: getEnv("STATIC_SHIPPING_COST", "4.99"),
		PricingTimeout: 5 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Postgres: catalog, addresses, orders, outbox
	repo, err := repository.NewRepository(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to Postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	// MongoDB: carts
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	cartRepo := repository.NewMongoCartRepository(mongoDB)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	// Redis: cart cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	cartCache := cache.NewRedisCacheTTL(redisClient, cfg.CartCacheTTL)
	log.Printf("Redis ping succeeded")

	var pricer service.PricingService
	if cfg.PricingURL != "" {
		pricer = pricing.NewClient(cfg.PricingURL, cfg.PricingTimeout)
		log.Printf("Using pricing service at %s", cfg.PricingURL)
	} else {
		static, err := pricing.NewStaticQuoter(cfg.StaticTaxRate, cfg.StaticShipping)
		if err != nil {
			log.Fatalf("Invalid static pricing config: %v", err)
		}
		pricer = static
		log.Printf("Using static pricing: tax rate %s, shipping %s", cfg.StaticTaxRate, cfg.StaticShipping)
	}

	metrics := service.NewMetrics()
	eventSink := publisher.NewOutboxSink(repo)

	cartService := service.NewCartService(cartRepo, cartCache, eventSink)
	checkoutService := service.NewCheckoutService(cartRepo, repo, repo, repo, repo, cartCache, pricer, metrics)
	orderService := service.NewOrderService(repo, repo)
	stockService := service.NewStockService(repo, repo)

	// Outbox poller drains committed events to Kafka
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	poller := publisher.NewOutboxPoller(repo, cfg.KafkaTopic, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)
	log.Printf("Outbox poller publishing to %s on topic %s", strings.Join(cfg.KafkaBrokers, ","), cfg.KafkaTopic)

	router := h.NewRouter(
		h.NewCartHandler(cartService),
		h.NewCheckoutHandler(checkoutService),
		h.NewOrdersHandler(orderService),
		h.NewStockHandler(stockService),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
