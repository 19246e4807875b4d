package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"threatscout/internal/ai"
	"threatscout/internal/logging"
	"threatscout/internal/models"
	"threatscout/internal/store"
)

const (
	defaultNewsLimit = 3
	minNewsLimit     = 1
	maxNewsLimit     = 10

	// commandTimeout bounds one full fetch-aggregate-render cycle.
	commandTimeout = 60 * time.Second
)

var integerLimitMin = float64(minNewsLimit)

var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "news",
		Description: "Fetch the latest cybersecurity news",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: "Number of articles to fetch (1-10)",
				Required:    false,
				MinValue:    &integerLimitMin,
				MaxValue:    maxNewsLimit,
			},
		},
	},
	{
		Name:        "cve",
		Description: "Fetch the latest CVE information",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: "Number of CVEs to fetch (1-10)",
				Required:    false,
				MinValue:    &integerLimitMin,
				MaxValue:    maxNewsLimit,
			},
		},
	},
	{
		Name:        "ideas",
		Description: "Generate security project ideas from the latest news",
	},
	{
		Name:        "saved",
		Description: "Browse saved project ideas",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "limit",
				Description: "Number of ideas to show (1-10)",
				Required:    false,
				MinValue:    &integerLimitMin,
				MaxValue:    maxNewsLimit,
			},
		},
	},
	{
		Name:        "implement",
		Description: "Mark an idea as implemented by ID",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "The idea ID",
				Required:    true,
			},
		},
	},
	{
		Name:        "help",
		Description: "Show available commands",
	},
	{
		Name:        "status",
		Description: "Show bot status and statistics",
	},
}

// registerCommands registers all slash commands globally.
func (b *Bot) registerCommands() error {
	for _, cmd := range slashCommands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("failed to create command %s: %v", cmd.Name, err)
		}
	}
	logging.Infof("registered %d slash commands", len(slashCommands))
	return nil
}

func (b *Bot) dispatchCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.ApplicationCommandData().Name {
	case "news":
		b.handleNews(s, i, false)
	case "cve":
		b.handleNews(s, i, true)
	case "ideas":
		b.handleIdeas(s, i)
	case "saved":
		b.handleSaved(s, i)
	case "implement":
		b.handleImplement(s, i)
	case "help":
		b.respondEmbed(s, i, helpEmbed("/"), true)
	case "status":
		b.handleStatus(s, i)
	}
}

// clampLimit bounds a requested count; the core does not re-validate.
func clampLimit(n int) int {
	if n < minNewsLimit {
		return minNewsLimit
	}
	if n > maxNewsLimit {
		return maxNewsLimit
	}
	return n
}

func optionInt(i *discordgo.InteractionCreate, name string, fallback int) int {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return int(opt.IntValue())
		}
	}
	return fallback
}

// Slash handlers

func (b *Bot) handleNews(s *discordgo.Session, i *discordgo.InteractionCreate, vulnOnly bool) {
	limit := clampLimit(optionInt(i, "limit", defaultNewsLimit))
	if err := deferResponse(s, i); err != nil {
		logging.Warnf("failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var items []models.NewsItem
	if vulnOnly {
		items = b.aggregator.VulnerabilitiesOnly(ctx, limit)
	} else {
		items = b.aggregator.LatestNews(ctx, limit, true)
	}

	if len(items) == 0 {
		b.editResponse(s, i, "", noResultsEmbed("📰 No News Found", "Could not fetch any articles at this time."), nil)
		return
	}

	b.editResponse(s, i, "", newsItemEmbed(items[0], 1, len(items)), nil)
	for idx, item := range items[1:] {
		b.followupEmbed(s, i, newsItemEmbed(item, idx+2, len(items)))
	}
}

func (b *Bot) handleIdeas(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := deferResponse(s, i); err != nil {
		logging.Warnf("failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	ideas, errEmbed := b.generateIdeas(ctx)
	if errEmbed != nil {
		b.editResponse(s, i, "", errEmbed, nil)
		return
	}

	pager := newPager(ideas, interactionUserID(i), false)
	msg := b.editResponse(s, i, "**💡 Research ideas based on current threats:**", pager.currentEmbed(), pager.components())
	if msg != nil {
		b.pagers.register(msg.ID, pager)
	}
}

// generateIdeas runs the fetch-then-generate pipeline shared by the slash and
// prefix commands. A non-nil embed describes why no ideas were produced.
func (b *Bot) generateIdeas(ctx context.Context) ([]models.Idea, *discordgo.MessageEmbed) {
	items := b.aggregator.LatestNews(ctx, defaultNewsLimit, true)
	if len(items) == 0 {
		return nil, noResultsEmbed("📰 No News Found", "Could not fetch news to analyze.")
	}

	ideas, err := b.generator.GenerateIdeas(ctx, items, ai.DefaultMaxRetries)
	if err != nil {
		if genErr, ok := err.(*ai.GenerateError); ok {
			return nil, generateErrorEmbed(genErr)
		}
		return nil, errorEmbed("❌ AI Service Error", err.Error())
	}
	if len(ideas) == 0 {
		return nil, noResultsEmbed("💡 No Ideas Generated", "The AI could not generate ideas from the news.")
	}

	// Persistence failures are logged, not surfaced; the ideas are still shown.
	ids, err := b.store.SaveIdeas(ideas)
	if err != nil {
		logging.Warnf("failed to save ideas: %v", err)
	} else {
		for idx := range ideas {
			ideas[idx].ID = ids[idx]
		}
		logging.Infof("saved %d ideas", len(ids))
	}
	return ideas, nil
}

func (b *Bot) handleSaved(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := clampLimit(optionInt(i, "limit", maxNewsLimit))
	if err := deferResponse(s, i); err != nil {
		logging.Warnf("failed to defer interaction: %v", err)
		return
	}

	ideas, err := b.store.ListIdeas(limit, false)
	if err != nil {
		b.editResponse(s, i, "", errorEmbed("❌ Error", err.Error()), nil)
		return
	}
	if len(ideas) == 0 {
		b.editResponse(s, i, "", noResultsEmbed("📚 No Saved Ideas", "No saved ideas yet. Use `/ideas` to generate some!"), nil)
		return
	}

	content := savedHeader(b.store)
	pager := newPager(ideas, interactionUserID(i), true)
	msg := b.editResponse(s, i, content, pager.currentEmbed(), pager.components())
	if msg != nil {
		b.pagers.register(msg.ID, pager)
	}
}

func (b *Bot) handleImplement(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := int64(optionInt(i, "id", 0))

	if !b.canImplement(s, i.GuildID, interactionUserID(i), memberRoles(i)) {
		b.respondEmbed(s, i, errorEmbed("❌ Permission Denied",
			"You don't have permission to mark ideas as implemented."), true)
		return
	}

	embed := b.markImplemented(id)
	b.respondEmbed(s, i, embed, false)
}

// markImplemented flips the flag and builds the outcome embed.
func (b *Bot) markImplemented(id int64) *discordgo.MessageEmbed {
	if err := b.store.MarkImplemented(id); err != nil {
		if err == store.ErrNotFound {
			return errorEmbed("❌ Error", fmt.Sprintf("Idea #%d not found or already implemented.", id))
		}
		return errorEmbed("❌ Error", err.Error())
	}

	idea, err := b.store.IdeaByID(id)
	if err != nil {
		return errorEmbed("❌ Error", err.Error())
	}
	embed := &discordgo.MessageEmbed{
		Title:       "✅ Idea Marked as Implemented",
		Description: fmt.Sprintf("**%s**\n\nID: #%d", idea.Title, id),
		Color:       colorSuccess,
	}
	if !idea.ImplementedAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "📅 Implemented At", Value: idea.ImplementedAt.UTC().Format(time.RFC1123), Inline: false,
		})
	}
	return embed
}

func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondEmbed(s, i, b.statusEmbed(), false)
}

func (b *Bot) statusEmbed() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "📊 Bot Status",
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: time.Since(b.startTime).Round(time.Second).String(), Inline: true},
			{Name: "News Sources", Value: strconv.Itoa(len(b.cfg.NewsSources)), Inline: true},
			{Name: "Vulnerability Sources", Value: strconv.Itoa(len(b.cfg.VulnerabilitySources)), Inline: true},
		},
	}
	if counts, err := b.store.Counts(); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Saved Ideas",
			Value:  fmt.Sprintf("Total: %d\nImplemented: %d\nPending: %d", counts.Total, counts.Implemented, counts.Unimplemented),
			Inline: true,
		})
	}
	return embed
}

// Prefix command runners. Each sends a progress message first, then edits it
// with the outcome, mirroring the slash defer-then-edit shape.

func (b *Bot) runNewsPrefix(s *discordgo.Session, m *discordgo.MessageCreate, args []string, vulnOnly bool) {
	limit := clampLimit(argInt(args, 0, defaultNewsLimit))
	label := "news"
	if vulnOnly {
		label = "CVEs"
	}
	msg, err := s.ChannelMessageSend(m.ChannelID, "🔍 Fetching latest "+label+"...")
	if err != nil {
		logging.Warnf("failed to send message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var items []models.NewsItem
	if vulnOnly {
		items = b.aggregator.VulnerabilitiesOnly(ctx, limit)
	} else {
		items = b.aggregator.LatestNews(ctx, limit, true)
	}

	if len(items) == 0 {
		b.editMessageEmbed(s, m.ChannelID, msg.ID, "", noResultsEmbed("📰 No News Found", "Could not fetch any articles at this time."))
		return
	}

	b.editMessageEmbed(s, m.ChannelID, msg.ID, "", newsItemEmbed(items[0], 1, len(items)))
	for idx, item := range items[1:] {
		b.sendEmbed(s, m.ChannelID, newsItemEmbed(item, idx+2, len(items)))
	}
}

func (b *Bot) runIdeasPrefix(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, err := s.ChannelMessageSend(m.ChannelID, "🤖 Analyzing latest news trends for research ideas...\n⏳ This may take a moment...")
	if err != nil {
		logging.Warnf("failed to send message: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	ideas, errEmbed := b.generateIdeas(ctx)
	if errEmbed != nil {
		b.editMessageEmbed(s, m.ChannelID, msg.ID, "", errEmbed)
		return
	}

	pager := newPager(ideas, m.Author.ID, false)
	b.editMessageComplex(s, m.ChannelID, msg.ID, "**💡 Research ideas based on current threats:**", pager.currentEmbed(), pager.components())
	b.pagers.register(msg.ID, pager)
}

func (b *Bot) runSavedPrefix(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	limit := clampLimit(argInt(args, 0, maxNewsLimit))
	msg, err := s.ChannelMessageSend(m.ChannelID, "🔍 Loading saved ideas...")
	if err != nil {
		logging.Warnf("failed to send message: %v", err)
		return
	}

	ideas, err := b.store.ListIdeas(limit, false)
	if err != nil {
		b.editMessageEmbed(s, m.ChannelID, msg.ID, "", errorEmbed("❌ Error", err.Error()))
		return
	}
	if len(ideas) == 0 {
		b.editMessageEmbed(s, m.ChannelID, msg.ID, "", noResultsEmbed("📚 No Saved Ideas", "No saved ideas yet. Use `!ideas` to generate some!"))
		return
	}

	pager := newPager(ideas, m.Author.ID, true)
	b.editMessageComplex(s, m.ChannelID, msg.ID, savedHeader(b.store), pager.currentEmbed(), pager.components())
	b.pagers.register(msg.ID, pager)
}

func (b *Bot) runImplementPrefix(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		b.sendEmbed(s, m.ChannelID, errorEmbed("❌ Error", "Usage: `!implement <id>`"))
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.sendEmbed(s, m.ChannelID, errorEmbed("❌ Error", "Please provide a valid idea ID (number)."))
		return
	}

	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}
	if !b.canImplement(s, m.GuildID, m.Author.ID, roles) {
		b.sendEmbed(s, m.ChannelID, errorEmbed("❌ Permission Denied",
			"You don't have permission to mark ideas as implemented."))
		return
	}

	b.sendEmbed(s, m.ChannelID, b.markImplemented(id))
}

// Response plumbing helpers

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		logging.Warnf("failed to respond to interaction: %v", err)
	}
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) *discordgo.Message {
	edit := &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	}
	if content != "" {
		edit.Content = &content
	}
	if components != nil {
		edit.Components = &components
	}
	msg, err := s.InteractionResponseEdit(i.Interaction, edit)
	if err != nil {
		logging.Warnf("failed to edit interaction response: %v", err)
		return nil
	}
	return msg
}

func (b *Bot) followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		logging.Warnf("failed to send followup: %v", err)
	}
}

func (b *Bot) editMessageEmbed(s *discordgo.Session, channelID, messageID, content string, embed *discordgo.MessageEmbed) {
	b.editMessageComplex(s, channelID, messageID, content, embed, nil)
}

func (b *Bot) editMessageComplex(s *discordgo.Session, channelID, messageID, content string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Content = &content
	edit.Embeds = []*discordgo.MessageEmbed{embed}
	if components != nil {
		edit.Components = components
	}
	if _, err := s.ChannelMessageEditComplex(edit); err != nil {
		logging.Warnf("failed to edit message: %v", err)
	}
}

func savedHeader(ideas *store.Store) string {
	counts, err := ideas.Counts()
	if err != nil {
		return "**💾 Saved Ideas**"
	}
	return fmt.Sprintf("**💾 Saved Ideas** (%d total, %d implemented, %d pending)",
		counts.Total, counts.Implemented, counts.Unimplemented)
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func memberRoles(i *discordgo.InteractionCreate) []string {
	if i.Member != nil {
		return i.Member.Roles
	}
	return nil
}

func argInt(args []string, idx, fallback int) int {
	if idx >= len(args) {
		return fallback
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return fallback
	}
	return n
}
