package threadline

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/akeome/store"
)

// Settings maps a channel to the categories that open threads in it. Like the ledger it is
// owned by the event queue consumer and is not safe for concurrent use.
type Settings struct {
	channels map[snowflake.ID]Set
}

func NewSettings() *Settings {
	return &Settings{channels: make(map[snowflake.ID]Set)}
}

// Enable replaces the channel's categories. An empty set removes the channel.
func (s *Settings) Enable(channelID snowflake.ID, set Set) {
	if set.Empty() {
		delete(s.channels, channelID)
		return
	}
	s.channels[channelID] = set
}

func (s *Settings) Get(channelID snowflake.ID) Set {
	return s.channels[channelID]
}

func (s *Settings) Enabled(channelID snowflake.ID) bool {
	return !s.channels[channelID].Empty()
}

// Restore replaces the settings with the document's. Channels with an unreadable id are
// dropped; unknown category names are dropped from their channel. Each problem is returned.
func (s *Settings) Restore(doc *store.Document) []error {
	s.channels = make(map[snowflake.ID]Set, len(doc.ThreadlineSettings))

	var errs []error
	for raw, names := range doc.ThreadlineSettings {
		id, err := snowflake.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("threadline channel %q: %w", raw, err))
			continue
		}
		set, err := ParseSet(names)
		if err != nil {
			errs = append(errs, fmt.Errorf("threadline channel %s: %w", id, err))
		}
		s.Enable(id, set)
	}
	return errs
}

func (s *Settings) Export(doc *store.Document) {
	doc.ThreadlineSettings = make(map[string][]string, len(s.channels))
	for id, set := range s.channels {
		doc.ThreadlineSettings[id.String()] = set.Names()
	}
}
