package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"threatscout/internal/ai"
	"threatscout/internal/models"
)

// Discord embed limits.
const (
	embedTitleMax = 256
	embedDescMax  = 4096
	fieldValueMax = 1024
)

const (
	colorInfo    = 0x7289DA
	colorSuccess = 0x2ECC71
	colorWarning = 0xF39C12
	colorError   = 0xE74C3C
)

// truncateText cuts text to max with an ellipsis marker.
func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// cvssColor maps a severity score onto the usual traffic-light scale.
func cvssColor(item models.NewsItem) int {
	if !item.HasCVSS {
		return colorWarning
	}
	switch {
	case item.CVSSScore >= 9.0:
		return 0xFF0000
	case item.CVSSScore >= 7.0:
		return 0xFF6600
	case item.CVSSScore >= 4.0:
		return 0xFFAA00
	default:
		return 0x00FF00
	}
}

// newsItemEmbed renders one news or vulnerability item as an embed card.
func newsItemEmbed(item models.NewsItem, index, total int) *discordgo.MessageEmbed {
	color := colorSuccess
	if item.Kind == models.KindVulnerability {
		color = cvssColor(item)
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncateText(item.Title, embedTitleMax),
		URL:         item.Link,
		Description: truncateText(item.Summary, embedDescMax),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Source: %s | %d/%d", item.Source, index, total)},
	}
	if !item.Published.IsZero() {
		embed.Timestamp = item.Published.UTC().Format(time.RFC3339)
	}

	if item.Kind == models.KindVulnerability {
		if item.CVEID != "" {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "🔖 CVE ID", Value: item.CVEID, Inline: true,
			})
		}
		if item.HasCVSS {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name: "📊 CVSS Score", Value: fmt.Sprintf("%.1f", item.CVSSScore), Inline: true,
			})
		}
	}
	return embed
}

// ideaEmbed renders one generated idea as a paginator page.
func ideaEmbed(idea models.Idea, index, total int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       truncateText("💡 "+idea.Title, embedTitleMax),
		Description: truncateText(idea.Description, embedDescMax),
		Color:       colorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Idea %d/%d", index, total)},
	}
	if idea.ID > 0 {
		embed.Footer.Text = fmt.Sprintf("Idea %d/%d | ID #%d", index, total, idea.ID)
	}
	if idea.InspirationLink != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "🔗 Inspiration", Value: truncateText(idea.InspirationLink, fieldValueMax), Inline: false,
		})
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "🛠️ Requirements", Value: bulletList(idea.Requirements), Inline: false},
		&discordgo.MessageEmbedField{Name: "⚙️ Functionalities", Value: bulletList(idea.Functionalities), Inline: false},
	)
	if idea.Implemented {
		embed.Color = colorSuccess
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "✅ Status", Value: "Implemented", Inline: false,
		})
	}
	return embed
}

// bulletList formats items as bullet points, truncating to the field limit.
func bulletList(items []string) string {
	if len(items) == 0 {
		return "None specified"
	}
	var b strings.Builder
	for _, item := range items {
		line := "• " + item + "\n"
		if b.Len()+len(line) > fieldValueMax-10 {
			b.WriteString("...")
			break
		}
		b.WriteString(line)
	}
	return strings.TrimSpace(b.String())
}

// errorEmbed renders a failure for the end user.
func errorEmbed(title, message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: truncateText(message, embedDescMax),
		Color:       colorError,
	}
}

// generateErrorEmbed renders a terminal AI-generation message; transient
// conditions get the softer warning color.
func generateErrorEmbed(genErr *ai.GenerateError) *discordgo.MessageEmbed {
	color := colorError
	if genErr.Kind == ai.KindTransient || genErr.Kind == ai.KindRateLimited {
		color = colorWarning
	}
	return &discordgo.MessageEmbed{
		Title:       "🤖 AI Service Response",
		Description: truncateText(genErr.Message, embedDescMax),
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Tip: try again in a few moments if the service is overloaded"},
	}
}

// noResultsEmbed is the "no data" state, distinct from an error.
func noResultsEmbed(title, hint string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: hint,
		Color:       colorWarning,
	}
}

// helpEmbed lists the command surface. prefix is "!" for text commands and
// "/" for the slash listing.
func helpEmbed(p string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🤖 threatscout help",
		Description: "Cybersecurity news, CVE tracking and AI-generated research ideas.",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "📰 `" + p + "news [limit]`", Value: "Latest cybersecurity news and CVEs (1-10 items)", Inline: false},
			{Name: "🔖 `" + p + "cve [limit]`", Value: "Latest CVE records only (1-10 items)", Inline: false},
			{Name: "💡 `" + p + "ideas`", Value: "Generate project ideas from the latest news", Inline: false},
			{Name: "💾 `" + p + "saved [limit]`", Value: "Browse saved ideas (1-10 items)", Inline: false},
			{Name: "✅ `" + p + "implement <id>`", Value: "Mark an idea as implemented", Inline: false},
			{Name: "📊 `" + p + "status`", Value: "Bot status and statistics", Inline: false},
		},
	}
}
