package bot

import (
	"github.com/bwmarrin/discordgo"

	"threatscout/internal/logging"
)

// canImplement reports whether a user may flip the implemented flag on ideas.
// Allowed: configured user IDs, members holding a configured role name, or,
// when nothing is configured, guild administrators.
func (b *Bot) canImplement(s *discordgo.Session, guildID, userID string, roleIDs []string) bool {
	for _, id := range b.cfg.ImplementUserIDs {
		if id == userID {
			return true
		}
	}

	if len(b.cfg.ImplementRoleNames) > 0 && guildID != "" {
		for _, name := range b.roleNames(s, guildID, roleIDs) {
			for _, allowed := range b.cfg.ImplementRoleNames {
				if name == allowed {
					return true
				}
			}
		}
	}

	if len(b.cfg.ImplementUserIDs) == 0 && len(b.cfg.ImplementRoleNames) == 0 {
		return b.isAdministrator(s, guildID, userID)
	}
	return false
}

// roleNames resolves role IDs to names through the session state cache.
func (b *Bot) roleNames(s *discordgo.Session, guildID string, roleIDs []string) []string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		logging.Debugf("guild %s not in state cache: %v", guildID, err)
		return nil
	}

	byID := make(map[string]string, len(guild.Roles))
	for _, role := range guild.Roles {
		byID[role.ID] = role.Name
	}

	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (b *Bot) isAdministrator(s *discordgo.Session, guildID, userID string) bool {
	if guildID == "" {
		return false
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}

	member, err := s.State.Member(guildID, userID)
	if err != nil {
		if member, err = s.GuildMember(guildID, userID); err != nil {
			return false
		}
	}

	byID := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		byID[role.ID] = role
	}
	for _, id := range member.Roles {
		if role, ok := byID[id]; ok && role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}
