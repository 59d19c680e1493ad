package gate

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/sys"
)

// Cache is the part of the gateway cache the resolver reads.
type Cache interface {
	Channel(channelID snowflake.ID) (discord.GuildChannel, bool)
	Member(guildID snowflake.ID, userID snowflake.ID) (discord.Member, bool)
	Role(guildID snowflake.ID, roleID snowflake.ID) (discord.Role, bool)
}

// Resolver answers CanPerform questions for channels known to the cache and records every
// denial.
type Resolver struct {
	cache   Cache
	botID   snowflake.ID
	metrics *sys.Metrics
}

func NewResolver(cache Cache, botID snowflake.ID, metrics *sys.Metrics) *Resolver {
	return &Resolver{cache: cache, botID: botID, metrics: metrics}
}

// Allowed resolves channelID and applies CanPerform. Threads are judged by their parent's
// overwrites.
func (r *Resolver) Allowed(channelID snowflake.ID, capability Capability) bool {
	ch, ok := r.permissionChannel(channelID)
	if !ok {
		sys.LogGate(sys.MsgGateUnknownChannel, channelID, capability)
		r.metrics.PermissionDenied(capability.String())
		return false
	}

	actor := Actor{BotID: r.botID, BotRoleID: r.BotRoleID(ch.GuildID())}
	if CanPerform(actor, FromGuildChannel(ch), capability) {
		return true
	}

	sys.LogGate(sys.MsgGateDenied, capability, channelID)
	r.metrics.PermissionDenied(capability.String())
	return false
}

func (r *Resolver) permissionChannel(channelID snowflake.ID) (discord.GuildChannel, bool) {
	ch, ok := r.cache.Channel(channelID)
	if !ok {
		return nil, false
	}
	if _, isThread := ch.(discord.GuildThread); isThread {
		parentID := ch.ParentID()
		if parentID == nil {
			return nil, false
		}
		return r.cache.Channel(*parentID)
	}
	return ch, true
}

// BotRoleID finds the managed role Discord created for the bot in guildID, or zero.
func (r *Resolver) BotRoleID(guildID snowflake.ID) snowflake.ID {
	member, ok := r.cache.Member(guildID, r.botID)
	if !ok {
		return 0
	}
	for _, roleID := range member.RoleIDs {
		role, ok := r.cache.Role(guildID, roleID)
		if !ok || role.Tags == nil || role.Tags.BotID == nil {
			continue
		}
		if *role.Tags.BotID == r.botID {
			return roleID
		}
	}
	return 0
}
