package domain

import "time"

// ModeratorActivity is the number of moderation actions one staff member
// recorded in a guild.
type ModeratorActivity struct {
	UserID      uint64
	ActionCount int
	LastAction  time.Time
}

// GuildReport summarizes recent moderation in a guild.
type GuildReport struct {
	GuildID       uint64
	Since         time.Time
	Infractions   map[InfractionType]int
	TopModerators []ModeratorActivity
	ActiveTags    int
	OpenCampaigns int
}
