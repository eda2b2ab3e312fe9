package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/phishguard/phishguard/pkg/analyzer"
	"github.com/phishguard/phishguard/pkg/config"
	"github.com/phishguard/phishguard/pkg/logging"
	"github.com/phishguard/phishguard/pkg/reputation"
	"github.com/phishguard/phishguard/pkg/server"
)

const Version = "0.1.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.NewDefaultConfig()
	log := logging.NewConsole(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		addr := cfg.ListenAddr
		if len(os.Args) > 2 {
			addr = os.Args[2]
			if !strings.Contains(addr, ":") {
				addr = ":" + addr
			}
		}
		runServer(cfg, log, addr)
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard analyze <text>")
			os.Exit(1)
		}
		runAnalyze(cfg, log, strings.Join(os.Args[2:], " "))
	case "rules":
		runListRules(cfg, log)
	case "version":
		fmt.Printf("phishguard v%s\n", Version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("phishguard v%s - explainable phishing-risk analysis\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  phishguard serve [addr]       Start HTTP server (default: :8080)")
	fmt.Println("  phishguard analyze <text>     Analyze a message body from the command line")
	fmt.Println("  phishguard rules              List loaded rules")
	fmt.Println("  phishguard version            Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  PHISHGUARD_RULE_PACK     Path to a YAML rule pack (default: embedded pack)")
	fmt.Println("  PHISHGUARD_VT_API_KEY    VirusTotal API key (enables reputation lookups)")
	fmt.Println("  PHISHGUARD_REDIS_ADDR    Redis address for a shared reputation cache")
	fmt.Println("  PHISHGUARD_LOG_LEVEL     trace|debug|info|warn|error (default: info)")
}

// newAnalyzer wires the reputation service and rule pack per config.
func newAnalyzer(cfg *config.Config, log zerolog.Logger) (*analyzer.Analyzer, error) {
	var rep reputation.Service = reputation.Disabled()

	if cfg.ReputationEnabled() {
		var cache reputation.Cache
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			cache = reputation.NewRedisCache(rdb, cfg.CacheTTL)
			log.Info().Str("addr", cfg.RedisAddr).Msg("using redis reputation cache")
		} else {
			cache = reputation.NewMemoryCache(cfg.CacheTTL)
		}

		rep = reputation.NewVirusTotal(reputation.Config{
			APIKey:      cfg.VTAPIKey,
			BaseURL:     cfg.VTBaseURL,
			Timeout:     cfg.VTTimeout,
			Cache:       cache,
			MaxInFlight: cfg.VTMaxInFlight,
			Logger:      log,
		})
		log.Info().Msg("reputation lookups enabled")
	} else {
		log.Info().Msg("reputation lookups disabled (no API key)")
	}

	return analyzer.NewFromFile(cfg.RulePackPath, analyzer.Options{
		Reputation:         rep,
		MaxEvidencePerRule: cfg.MaxEvidencePerRule,
		Logger:             log,
	})
}

func runServer(cfg *config.Config, log zerolog.Logger, addr string) {
	an, err := newAnalyzer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rules")
	}

	srv := server.New(an, log, Version)
	log.Info().Str("addr", addr).Int("rules", len(an.Rules())).Msg("phishguard listening")
	if err := srv.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func runAnalyze(cfg *config.Config, log zerolog.Logger, text string) {
	an, err := newAnalyzer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rules")
	}

	res, err := an.Analyze(context.Background(), &analyzer.Request{Body: text})
	if err != nil {
		log.Fatal().Err(err).Msg("analysis failed")
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

func runListRules(cfg *config.Config, log zerolog.Logger) {
	an, err := newAnalyzer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rules")
	}

	out, _ := json.MarshalIndent(an.Rules(), "", "  ")
	fmt.Println(string(out))
}
