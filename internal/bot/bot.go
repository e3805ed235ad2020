package bot

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"discord-invite-tracker/internal/commands"
	"discord-invite-tracker/internal/database"
	"discord-invite-tracker/internal/redis"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	Session    *discordgo.Session
	DB         *database.Database
	Redis      *redis.Client
	Tracker    *tracker.Service
	Dispatcher *tracker.Dispatcher
	Prizes     utils.PrizeTable
	Roles      *roleDirectory
	StartTime  time.Time
	Logger     *zap.Logger

	// Guild membership tracked by hand since session state is disabled.
	guildMu sync.Mutex
	guilds  map[string]struct{}
}

func New(token string, db *database.Database, rdb *redis.Client, svc *tracker.Service, prizes utils.PrizeTable, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	// HTTP keep-alive pooled transport for REST calls. The join handler
	// fetches the invite list on every member add, so warm connections matter.
	tr := &http.Transport{
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   50,
		IdleConnTimeout:       120 * time.Second,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: 5 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	s.Client = &http.Client{
		Transport: tr,
		Timeout:   15 * time.Second,
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildInvites

	// Minimal gateway overhead: no compression, no message caching.
	s.Identify.Compress = false
	s.StateEnabled = false
	s.ShouldReconnectOnError = true
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 3
	s.Compress = false

	b := &Bot{
		Session:    s,
		DB:         db,
		Redis:      rdb,
		Tracker:    svc,
		Dispatcher: tracker.NewDispatcher(svc),
		Prizes:     prizes,
		Roles:      newRoleDirectory(s, svc.Config()),
		StartTime:  time.Now(),
		Logger:     logger,
		guilds:     make(map[string]struct{}),
	}

	s.AddHandler(b.Ready)
	s.AddHandler(b.GuildCreate)
	s.AddHandler(b.GuildDelete)
	s.AddHandler(b.InteractionCreate)
	s.AddHandler(b.GuildMemberAdd)
	s.AddHandler(b.GuildMemberRemove)
	s.AddHandler(b.GuildMemberUpdate)
	s.AddHandler(b.RawEvent)

	return b, nil
}

func (b *Bot) Start() error {
	log.Println("⚡ Connecting to Discord Gateway...")

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("gateway connection failed: %w", err)
	}
	log.Println("✓ Connected to Discord Gateway")

	// Ensure we have the bot user (since state is disabled)
	if b.Session.State.User == nil {
		u, err := b.Session.User("@me")
		if err != nil {
			return fmt.Errorf("failed to get bot user: %w", err)
		}
		b.Session.State.User = u
	}
	log.Printf("✓ Logged in as: %s#%s (ID: %s)",
		b.Session.State.User.Username,
		b.Session.State.User.Discriminator,
		b.Session.State.User.ID)

	b.Session.UpdateWatchStatus(0, "the leaderboard")

	log.Println("Registering commands...")
	_, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, "", commands.Commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	log.Printf("✓ Registered %d commands", len(commands.Commands))

	go b.RunMonthlyScheduler()

	log.Println("\n🚀 Bot is running!")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return b.Close()
}

func (b *Bot) Close() error {
	log.Println("Shutting down...")
	if b.Logger != nil {
		b.Logger.Sync()
	}
	b.DB.Close()
	b.Redis.Close()
	return b.Session.Close()
}

func (b *Bot) trackGuild(guildID string) {
	b.guildMu.Lock()
	b.guilds[guildID] = struct{}{}
	b.guildMu.Unlock()
}

func (b *Bot) forgetGuild(guildID string) {
	b.guildMu.Lock()
	delete(b.guilds, guildID)
	b.guildMu.Unlock()
}

// GuildIDs returns the currently joined guilds.
func (b *Bot) GuildIDs() []string {
	b.guildMu.Lock()
	defer b.guildMu.Unlock()
	ids := make([]string, 0, len(b.guilds))
	for id := range b.guilds {
		ids = append(ids, id)
	}
	return ids
}
