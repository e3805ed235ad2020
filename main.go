package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/debug"

	"discord-invite-tracker/internal/bot"
	"discord-invite-tracker/internal/cache"
	"discord-invite-tracker/internal/database"
	"discord-invite-tracker/internal/notify"
	"discord-invite-tracker/internal/redis"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Config struct {
	Token    string                  `json:"token"`
	Redis    redis.Config            `json:"redis"`
	Postgres database.PostgresConfig `json:"postgres"`
	Tracker  tracker.Config          `json:"tracker"`

	// PrizesPath points at the yaml prize ladder; empty uses prizes.yaml.
	PrizesPath string `json:"prizes_path"`

	// ReportChannels maps guild id -> channel id for the monthly standings
	// post. Guilds without an entry only get the email report.
	ReportChannels map[string]string  `json:"report_channels"`
	Email          notify.EmailConfig `json:"email"`

	// DebugAddr serves pprof and /metrics; empty disables the listener.
	DebugAddr string `json:"debug_addr"`
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	debug.SetGCPercent(400)

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Load config
	file, err := os.ReadFile("config.json")
	if err != nil {
		log.Fatalf("Error reading config.json: %v", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		log.Fatalf("Error parsing config.json: %v", err)
	}

	prizesPath := config.PrizesPath
	if prizesPath == "" {
		prizesPath = "prizes.yaml"
	}
	prizes, err := utils.LoadPrizeTable(prizesPath)
	if err != nil {
		log.Fatalf("Error loading prize table: %v", err)
	}

	// Initialize Redis
	rdb, err := redis.New(config.Redis)
	if err != nil {
		log.Fatalf("Error initializing Redis: %v", err)
	}

	// Initialize Database
	db, err := database.NewDatabase(config.Postgres)
	if err != nil {
		log.Fatalf("Error initializing Database: %v", err)
	}

	// Creator lookups ride the two-layer cache; point totals get the
	// write-through Redis mirror.
	lookups, err := cache.NewCache(rdb, cache.Config{})
	if err != nil {
		log.Fatalf("Error initializing cache: %v", err)
	}
	defer lookups.Close()

	// The tracker needs the live session for role resolution, and the bot
	// needs the tracker, so wiring happens in two steps.
	roles := bot.DeferredRoles()
	svc := tracker.NewService(db, roles, config.Tracker, logger).
		WithPointsCache(redis.NewPointsCache(rdb)).
		WithCreatorCache(lookups)

	b, err := bot.New(config.Token, db, rdb, svc, prizes, logger)
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}
	roles.Bind(b.Roles)

	var notifiers notify.Multi
	if len(config.Email.To) > 0 {
		notifiers = append(notifiers, notify.NewEmail(config.Email, logger))
	}
	if len(config.ReportChannels) > 0 {
		notifiers = append(notifiers, notify.NewChannel(b.Session, config.ReportChannels, prizes, logger))
	}
	if len(notifiers) > 0 {
		svc.WithNotifier(notifiers)
	}

	if config.DebugAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Printf("Debug server on %s (pprof + /metrics)", config.DebugAddr)
			log.Println(http.ListenAndServe(config.DebugAddr, nil))
		}()
	}

	// Start bot
	if err := b.Start(); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}
}
