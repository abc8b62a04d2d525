// Package quest tracks engagement quests: per-user counters over chat
// events that pay out a one-time points reward on completion.
package quest

import "regexp"

// MatchRule is the kind of event condition a quest counts.
type MatchRule int

const (
	// MatchAnyReaction counts every reaction event.
	MatchAnyReaction MatchRule = iota
	// MatchEmoji counts reactions whose emoji is in the quest's set.
	MatchEmoji
	// MatchReactionChannel counts reactions inside a named channel.
	MatchReactionChannel
	// MatchThreadReply counts replies inside a thread.
	MatchThreadReply
	// MatchPattern counts messages whose text matches a pattern.
	MatchPattern
	// MatchChannel counts top-level posts in a named channel.
	MatchChannel
	// MatchFirstPost counts a user's first-ever post in a named channel,
	// verified against the backend so it survives restarts.
	MatchFirstPost
	// MatchTimeWindow counts messages sent within an hour window in the
	// configured time zone.
	MatchTimeWindow
)

// Definition is one quest's static configuration.
type Definition struct {
	ID          string
	Name        string
	Description string
	TargetCount int
	Points      int
	Rule        MatchRule

	Pattern     *regexp.Regexp // MatchPattern
	Emojis      []string       // MatchEmoji
	ChannelName string         // MatchChannel, MatchFirstPost, MatchReactionChannel
	HourStart   int            // MatchTimeWindow, inclusive
	HourEnd     int            // MatchTimeWindow, exclusive
}

// Builtins returns the standard quest set.
func Builtins() []Definition {
	return []Definition{
		{
			ID: "connector", Name: "Connector", Description: "React to 5 messages",
			TargetCount: 5, Points: 5, Rule: MatchAnyReaction,
		},
		{
			ID: "helper", Name: "Helper", Description: "Reply to 3 threads",
			TargetCount: 3, Points: 5, Rule: MatchThreadReply,
		},
		{
			ID: "first_contact", Name: "First Contact", Description: "First post in #_start-here",
			TargetCount: 1, Points: 2, Rule: MatchFirstPost, ChannelName: "_start-here",
		},
		{
			ID: "paper_trail", Name: "Paper Trail", Description: "Share an arXiv link",
			TargetCount: 1, Points: 5, Rule: MatchPattern, Pattern: regexp.MustCompile(`(?i)arxiv\.org`),
		},
		{
			ID: "git_pusher", Name: "Git Pusher", Description: "Share a GitHub link",
			TargetCount: 1, Points: 5, Rule: MatchPattern, Pattern: regexp.MustCompile(`(?i)github\.com`),
		},
		{
			ID: "model_citizen", Name: "Model Citizen", Description: "Share a Hugging Face link",
			TargetCount: 1, Points: 5, Rule: MatchPattern, Pattern: regexp.MustCompile(`(?i)huggingface\.co`),
		},
		{
			ID: "code_blooded", Name: "Code Blooded", Description: "Post a code block",
			TargetCount: 1, Points: 2, Rule: MatchPattern, Pattern: regexp.MustCompile("```"),
		},
		{
			ID: "show_off", Name: "Show Off", Description: "Post in #showcase",
			TargetCount: 1, Points: 10, Rule: MatchChannel, ChannelName: "showcase",
		},
		{
			ID: "bug_basher", Name: "Bug Basher", Description: "Post in #bugs",
			TargetCount: 1, Points: 10, Rule: MatchChannel, ChannelName: "bugs",
		},
		{
			ID: "melb_coffee", Name: "Melb Coffee", Description: "React with a coffee emoji",
			TargetCount: 1, Points: 1, Rule: MatchEmoji, Emojis: []string{"coffee", "flat_white", "espresso"},
		},
		{
			ID: "kangaroo_court", Name: "Kangaroo Court", Description: "React with the kangaroo",
			TargetCount: 1, Points: 1, Rule: MatchEmoji, Emojis: []string{"kangaroo"},
		},
		{
			ID: "warm_welcome", Name: "Warm Welcome", Description: "React in #_start-here",
			TargetCount: 1, Points: 5, Rule: MatchReactionChannel, ChannelName: "_start-here",
		},
		{
			ID: "night_owl", Name: "Night Owl", Description: "Post between 1 and 5 AM",
			TargetCount: 1, Points: 10, Rule: MatchTimeWindow, HourStart: 1, HourEnd: 5,
		},
	}
}
