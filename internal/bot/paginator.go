package bot

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"threatscout/internal/logging"
	"threatscout/internal/models"
	"threatscout/internal/store"
)

// Component custom IDs.
const (
	pagerPrev      = "pager:prev"
	pagerNext      = "pager:next"
	pagerImplement = "pager:implement"
)

// pagerTTL is how long a paginator stays interactive after creation.
const pagerTTL = 15 * time.Minute

// pager is one paginated ideas view bound to a single message. Button presses
// arrive on separate gateway goroutines; mutex guards index and the ideas.
type pager struct {
	mutex     sync.Mutex
	ideas     []models.Idea
	index     int
	authorID  string
	saved     bool // saved-ideas view carries the implement button
	createdAt time.Time
}

func newPager(ideas []models.Idea, authorID string, saved bool) *pager {
	return &pager{ideas: ideas, authorID: authorID, saved: saved, createdAt: time.Now()}
}

func (p *pager) currentEmbed() *discordgo.MessageEmbed {
	return ideaEmbed(p.ideas[p.index], p.index+1, len(p.ideas))
}

// components builds the button row for the current page.
func (p *pager) components() []discordgo.MessageComponent {
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "◀ Prev",
			Style:    discordgo.SecondaryButton,
			CustomID: pagerPrev,
			Disabled: p.index == 0,
		},
		discordgo.Button{
			Label:    "Next ▶",
			Style:    discordgo.SecondaryButton,
			CustomID: pagerNext,
			Disabled: p.index == len(p.ideas)-1,
		},
	}
	if p.saved {
		buttons = append(buttons, discordgo.Button{
			Label:    "✅ Implement",
			Style:    discordgo.SuccessButton,
			CustomID: pagerImplement,
			Disabled: p.ideas[p.index].Implemented,
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

// pagerRegistry maps message IDs to live paginators.
type pagerRegistry struct {
	mutex  sync.Mutex
	pagers map[string]*pager
}

func newPagerRegistry() *pagerRegistry {
	return &pagerRegistry{pagers: make(map[string]*pager)}
}

// register tracks a paginator for its message and prunes expired ones.
func (r *pagerRegistry) register(messageID string, p *pager) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for id, old := range r.pagers {
		if time.Since(old.createdAt) > pagerTTL {
			delete(r.pagers, id)
		}
	}
	r.pagers[messageID] = p
}

func (r *pagerRegistry) lookup(messageID string) *pager {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	p, ok := r.pagers[messageID]
	if !ok || time.Since(p.createdAt) > pagerTTL {
		delete(r.pagers, messageID)
		return nil
	}
	return p
}

// step applies one button press under the pager lock and renders the
// resulting page. A non-empty reject message means the press was refused and
// nothing changed; a nil embed means the custom ID is not ours.
func (p *pager) step(b *Bot, s *discordgo.Session, i *discordgo.InteractionCreate, customID, userID string) (*discordgo.MessageEmbed, []discordgo.MessageComponent, string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	switch customID {
	case pagerPrev, pagerNext:
		if userID != p.authorID {
			return nil, nil, "Only the person who ran the command can turn its pages."
		}
		if customID == pagerPrev && p.index > 0 {
			p.index--
		}
		if customID == pagerNext && p.index < len(p.ideas)-1 {
			p.index++
		}
	case pagerImplement:
		if !b.canImplement(s, i.GuildID, userID, memberRoles(i)) {
			return nil, nil, "You don't have permission to mark ideas as implemented."
		}
		idea := &p.ideas[p.index]
		if err := b.store.MarkImplemented(idea.ID); err != nil && err != store.ErrNotFound {
			return nil, nil, "Failed to update the idea: " + err.Error()
		}
		idea.Implemented = true
	default:
		return nil, nil, ""
	}

	return p.currentEmbed(), p.components(), ""
}

// handleComponent services one button press on a paginated message.
func (r *pagerRegistry) handleComponent(b *Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	p := r.lookup(i.Message.ID)
	if p == nil {
		respondEphemeral(s, i, "This view has expired. Run the command again.")
		return
	}

	embed, components, reject := p.step(b, s, i, i.MessageComponentData().CustomID, interactionUserID(i))
	if reject != "" {
		respondEphemeral(s, i, reject)
		return
	}
	if embed == nil {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
	if err != nil {
		logging.Warnf("failed to update paginated message: %v", err)
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logging.Warnf("failed to send ephemeral response: %v", err)
	}
}
