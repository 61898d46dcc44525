package slack

import (
	goslack "github.com/slack-go/slack"
	"github.com/snapngo/snapngo/internal/chat"
	"github.com/snapngo/snapngo/internal/offer"
)

// Blocks renders a payload as Block Kit. Plain text payloads have no
// blocks.
func Blocks(p chat.Payload) []goslack.Block {
	if p.Offer != nil {
		return offerBlocks(*p.Offer)
	}
	if len(p.Sections) == 0 {
		return nil
	}

	blocks := make([]goslack.Block, 0, len(p.Sections)+1)
	if p.Text != "" {
		blocks = append(blocks, section("*"+p.Text+"*"))
	}
	for _, s := range p.Sections {
		blocks = append(blocks, section(s))
	}
	return blocks
}

// offerBlocks lays out the task description followed by one action block
// whose block id carries the task tag.
func offerBlocks(v offer.View) []goslack.Block {
	elements := make([]goslack.BlockElement, 0, len(v.Choices))
	tag := offer.Tag(v.TaskID)

	for _, c := range v.Choices {
		btn := goslack.NewButtonBlockElement(
			c.ActionID,
			string(c.Value),
			goslack.NewTextBlockObject(goslack.PlainTextType, c.Label, false, false),
		)
		btn.Style = style(c.Emphasis)
		elements = append(elements, btn)
		if c.TaskTag != "" {
			tag = c.TaskTag
		}
	}

	return []goslack.Block{
		section(v.Text),
		goslack.NewActionBlock(tag, elements...),
	}
}

func section(text string) *goslack.SectionBlock {
	return goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
		nil,
		nil,
	)
}

func style(e offer.Emphasis) goslack.Style {
	switch e {
	case offer.EmphasisPrimary:
		return goslack.StylePrimary
	case offer.EmphasisDanger:
		return goslack.StyleDanger
	default:
		return goslack.StyleDefault
	}
}
