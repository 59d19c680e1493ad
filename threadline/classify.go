package threadline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	pollTitleLimit = 100
	fileTitleLimit = 100
	textTitleLimit = 80

	fullWidthSpace = "　"

	defaultPollTitle = "Investigation thread"
	defaultLinkTitle = "Link discussion"
	defaultTextTitle = "Discussion"
)

var (
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	emphasisPattern = regexp.MustCompile(`\*\*|__|\*|_`)
	headingPattern  = regexp.MustCompile(`^(?:#{1,3}|-#)\s+`)
	illegalReplacer = strings.NewReplacer(`\`, "", "/", "", ":", "", "*", "", "?", "", `"`, "", "<", "", ">", "", "|", "")
)

type Attachment struct {
	Filename    string
	ContentType string
}

// IsMedia reports whether the attachment is an image, video or audio clip.
func (a Attachment) IsMedia() bool {
	ct := strings.ToLower(a.ContentType)
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/")
}

// Message is what the classifier needs to know about an inbound message.
type Message struct {
	Content      string
	AuthorName   string
	PollQuestion *string
	Attachments  []Attachment
}

// Action is a thread to open for a message.
type Action struct {
	Category Category
	Title    string
	Emoji    string
}

type Classifier struct {
	CommandPrefix string
}

// Classify picks the strongest category that both matches msg and is enabled, and derives
// the thread title for it.
func (c Classifier) Classify(msg Message, enabled Set) (Action, bool) {
	matched := c.Matches(msg)
	for _, cat := range Precedence {
		if matched.Has(cat) && enabled.Has(cat) {
			return c.action(msg, cat), true
		}
	}
	return Action{}, false
}

// Strongest classifies msg as if every category were enabled.
func (c Classifier) Strongest(msg Message) (Action, bool) {
	return c.Classify(msg, NewSet(Precedence...))
}

// Matches returns every category msg qualifies for.
func (c Classifier) Matches(msg Message) Set {
	var s Set
	if msg.PollQuestion != nil {
		s = s.With(CategoryPoll)
	}
	for _, a := range msg.Attachments {
		if a.IsMedia() {
			s = s.With(CategoryMedia)
		} else {
			s = s.With(CategoryFile)
		}
	}
	if urlPattern.MatchString(msg.Content) {
		s = s.With(CategoryLink)
	}
	if c.isTextCandidate(msg.Content) {
		s = s.With(CategoryMessage)
	}
	return s
}

func (c Classifier) action(msg Message, cat Category) Action {
	var title string
	switch cat {
	case CategoryPoll:
		title = pollTitle(msg.PollQuestion)
	case CategoryMedia:
		title = fmt.Sprintf("%s's media", msg.AuthorName)
	case CategoryFile:
		title = fileTitle(msg)
	case CategoryLink:
		title = linkTitle(msg.Content)
	case CategoryMessage:
		title, _ = textTitle(plainText(msg.Content))
		if title == "" {
			title = defaultTextTitle
		}
	}

	switch cat {
	case CategoryMedia, CategoryFile, CategoryLink:
		if c.isTextCandidate(msg.Content) {
			if t, ok := textTitle(plainText(msg.Content)); ok {
				title = t
			}
		}
	}

	return Action{Category: cat, Title: title, Emoji: cat.Emoji()}
}

// isTextCandidate reports whether content carries commentary worth naming a thread after.
// Command-like text and a bare leading "#" do not count.
func (c Classifier) isTextCandidate(content string) bool {
	trimmed := strings.TrimSpace(content)
	if c.CommandPrefix != "" && strings.HasPrefix(trimmed, c.CommandPrefix) {
		return false
	}
	if strings.HasPrefix(trimmed, "#") {
		rest := trimmed[1:]
		if rest == "" {
			return false
		}
		if r, _ := utf8.DecodeRuneInString(rest); r != '#' && !unicode.IsSpace(r) {
			return false
		}
	}
	return plainText(content) != ""
}

// plainText is the content with URLs removed.
func plainText(content string) string {
	return strings.TrimSpace(urlPattern.ReplaceAllString(content, ""))
}

func pollTitle(question *string) string {
	if question == nil {
		return defaultPollTitle
	}
	title := cutAt(Truncate(strings.TrimSpace(*question), pollTitleLimit), fullWidthSpace)
	if title == "" {
		return defaultPollTitle
	}
	return title
}

func fileTitle(msg Message) string {
	for _, a := range msg.Attachments {
		if a.IsMedia() {
			continue
		}
		if name := strings.TrimSpace(Truncate(a.Filename, fileTitleLimit)); name != "" {
			return name
		}
		break
	}
	return fmt.Sprintf("%s's file", msg.AuthorName)
}

func linkTitle(content string) string {
	title := strings.TrimSpace(Truncate(firstLine(content), textTitleLimit))
	if title == "" {
		return defaultLinkTitle
	}
	return title
}

// textTitle derives a title from free text, or reports false if nothing usable is left.
func textTitle(text string) (string, bool) {
	line := firstLine(text)
	line = emphasisPattern.ReplaceAllString(line, "")
	line = headingPattern.ReplaceAllString(strings.TrimSpace(line), "")
	line = cutAt(line, fullWidthSpace)
	line = Truncate(line, textTitleLimit)
	line = strings.TrimSpace(illegalReplacer.Replace(line))
	return line, line != ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func cutAt(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
