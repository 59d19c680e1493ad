// Package gate decides whether the bot may act in a channel. Only an explicit channel
// overwrite for the bot's own member or for its managed role counts as a grant; guild-wide
// role permissions and @everyone overwrites never do.
package gate

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Capability is an outbound action the bot can take.
type Capability int

const (
	SendMessages Capability = iota
	EmbedLinks
	CreatePublicThreads
	SendMessagesInThreads
	AddReactions
	ManageThreads
)

var capabilityNames = map[Capability]string{
	SendMessages:          "send_messages",
	EmbedLinks:            "embed_links",
	CreatePublicThreads:   "create_public_threads",
	SendMessagesInThreads: "send_messages_in_threads",
	AddReactions:          "add_reactions",
	ManageThreads:         "manage_threads",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// Permission maps the capability to its Discord permission bit.
func (c Capability) Permission() discord.Permissions {
	switch c {
	case SendMessages:
		return discord.PermissionSendMessages
	case EmbedLinks:
		return discord.PermissionEmbedLinks
	case CreatePublicThreads:
		return discord.PermissionCreatePublicThreads
	case SendMessagesInThreads:
		return discord.PermissionSendMessagesInThreads
	case AddReactions:
		return discord.PermissionAddReactions
	case ManageThreads:
		return discord.PermissionManageThreads
	default:
		return 0
	}
}

type OverwriteKind int

const (
	OverwriteRole OverwriteKind = iota
	OverwriteMember
)

type Overwrite struct {
	ID    snowflake.ID
	Kind  OverwriteKind
	Allow discord.Permissions
	Deny  discord.Permissions
}

// Actor identifies the bot inside one guild. BotRoleID is zero when the bot has no managed role.
type Actor struct {
	BotID     snowflake.ID
	BotRoleID snowflake.ID
}

// Channel is the permission-relevant view of a guild channel.
type Channel struct {
	GuildID    snowflake.ID
	ChannelID  snowflake.ID
	Overwrites []Overwrite
}

// CanPerform applies the grant policy. A member deny beats everything, a member allow beats
// role overwrites, and with no member decision the bot role overwrite decides.
func CanPerform(actor Actor, ch Channel, capability Capability) bool {
	perm := capability.Permission()
	if perm == 0 {
		return false
	}

	for _, o := range ch.Overwrites {
		if o.Kind != OverwriteMember || o.ID != actor.BotID {
			continue
		}
		if o.Deny.Has(perm) {
			return false
		}
		if o.Allow.Has(perm) {
			return true
		}
	}

	if actor.BotRoleID == 0 || actor.BotRoleID == ch.GuildID {
		return false
	}
	for _, o := range ch.Overwrites {
		if o.Kind != OverwriteRole || o.ID != actor.BotRoleID {
			continue
		}
		if o.Deny.Has(perm) {
			return false
		}
		if o.Allow.Has(perm) {
			return true
		}
	}
	return false
}

// FromGuildChannel copies the overwrites of a cached channel.
func FromGuildChannel(ch discord.GuildChannel) Channel {
	out := Channel{GuildID: ch.GuildID(), ChannelID: ch.ID()}
	for _, o := range ch.PermissionOverwrites() {
		switch ow := o.(type) {
		case discord.MemberPermissionOverwrite:
			out.Overwrites = append(out.Overwrites, Overwrite{ID: o.ID(), Kind: OverwriteMember, Allow: ow.Allow, Deny: ow.Deny})
		case discord.RolePermissionOverwrite:
			out.Overwrites = append(out.Overwrites, Overwrite{ID: o.ID(), Kind: OverwriteRole, Allow: ow.Allow, Deny: ow.Deny})
		}
	}
	return out
}
