// Package bot wires the Discord surface: commands, embeds, pagination and the
// scheduled digest.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"threatscout/internal/ai"
	"threatscout/internal/config"
	"threatscout/internal/feed"
	"threatscout/internal/health"
	"threatscout/internal/logging"
	"threatscout/internal/store"
)

const commandPrefix = "!"

// Bot is the running Discord bot instance.
type Bot struct {
	session    *discordgo.Session
	aggregator *feed.Aggregator
	fetcher    *feed.Fetcher
	generator  *ai.Generator
	store      *store.Store
	cfg        *config.Config
	status     *health.Status
	pagers     *pagerRegistry
	startTime  time.Time
}

// New creates a bot around an already-open set of collaborators. The Discord
// connection is not opened until Start.
func New(cfg *config.Config, aggregator *feed.Aggregator, fetcher *feed.Fetcher, generator *ai.Generator, ideas *store.Store, status *health.Status) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %v", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session:    session,
		aggregator: aggregator,
		fetcher:    fetcher,
		generator:  generator,
		store:      ideas,
		cfg:        cfg,
		status:     status,
		pagers:     newPagerRegistry(),
		startTime:  time.Now(),
	}

	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleMessageCreate)
	session.AddHandler(b.handleInteractionCreate)

	return b, nil
}

// Start opens the Discord connection and registers slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %v", err)
	}
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %v", err)
	}
	return nil
}

// Stop closes the Discord connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	logging.Infof("bot ready as %s#%s", r.User.Username, r.User.Discriminator)
	if err := s.UpdateGameStatus(0, "cybersecurity news | /help"); err != nil {
		logging.Warnf("failed to update status: %v", err)
	}
}

// handleMessageCreate serves the !-prefix text commands.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, commandPrefix))
	if len(fields) == 0 {
		return
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "news":
		go b.runNewsPrefix(s, m, args, false)
	case "cve":
		go b.runNewsPrefix(s, m, args, true)
	case "ideas":
		go b.runIdeasPrefix(s, m)
	case "saved":
		go b.runSavedPrefix(s, m, args)
	case "implement":
		go b.runImplementPrefix(s, m, args)
	case "help":
		b.sendEmbed(s, m.ChannelID, helpEmbed(commandPrefix))
	case "status":
		b.sendEmbed(s, m.ChannelID, b.statusEmbed())
	}
}

// handleInteractionCreate dispatches slash commands and paginator buttons.
func (b *Bot) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.pagers.handleComponent(b, s, i)
	}
}

func (b *Bot) sendEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logging.Warnf("failed to send message: %v", err)
	}
}
