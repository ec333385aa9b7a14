package discord

import (
	"github.com/keshon/disharmony/internal/config"
	"github.com/keshon/disharmony/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const (
	adminPerms = discordgo.PermissionAdministrator | discordgo.PermissionManageGuild
	modPerms   = discordgo.PermissionManageMessages |
		discordgo.PermissionKickMembers |
		discordgo.PermissionBanMembers |
		discordgo.PermissionModerateMembers
)

// LevelFor maps a member's effective permission bits to a command level.
func LevelFor(perms int64, owner bool) cmd.PermissionLevel {
	switch {
	case owner:
		return cmd.Owner
	case perms&adminPerms != 0:
		return cmd.Admin
	case perms&modPerms != 0:
		return cmd.Moderator
	}
	return cmd.Everyone
}

// memberLevel derives userID's level in a channel from the session state.
// Guild owner and the configured developer are owners; anything the state
// cannot answer falls back to Everyone.
func memberLevel(s *discordgo.Session, cfg *config.Config, guildID, channelID, userID string) cmd.PermissionLevel {
	if config.IsDeveloper(cfg, userID) {
		return cmd.Owner
	}
	if guildID == "" || s == nil || s.State == nil {
		return cmd.Everyone
	}

	owner := false
	if g, err := s.State.Guild(guildID); err == nil && g != nil {
		owner = g.OwnerID == userID
	}

	perms, err := s.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		perms = 0
	}
	return LevelFor(perms, owner)
}
