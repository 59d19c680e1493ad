package threadline

import "github.com/disgoorg/disgo/discord"

// FromDiscord converts a gateway message. authorName is the display name to use for
// author-based titles.
func FromDiscord(m discord.Message, authorName string) Message {
	msg := Message{
		Content:    m.Content,
		AuthorName: authorName,
	}
	if m.Poll != nil {
		q := ""
		if m.Poll.Question.Text != nil {
			q = *m.Poll.Question.Text
		}
		msg.PollQuestion = &q
	}
	for _, a := range m.Attachments {
		att := Attachment{Filename: a.Filename}
		if a.ContentType != nil {
			att.ContentType = *a.ContentType
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	return msg
}

// DisplayName prefers the guild nickname, then the global name, then the username.
func DisplayName(user discord.User, member *discord.Member) string {
	if member != nil && member.Nick != nil && *member.Nick != "" {
		return *member.Nick
	}
	return user.EffectiveName()
}
