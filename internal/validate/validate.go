package validate

import "fmt"

// Metadata field length limits for ingested video records.
const (
	MaxVideoIDLength     = 64
	MaxTitleLength       = 500
	MaxDescriptionLength = 5000
	MaxDurationLength    = 16
	MaxChannelNameLength = 200
	MaxCTATextLength     = 120
	MaxURLLength         = 2048
	MaxQueueLength       = 50
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func VideoID(s string) string     { return checkLen(s, MaxVideoIDLength, "video id") }
func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Description(s string) string { return checkLen(s, MaxDescriptionLength, "description") }
func Duration(s string) string    { return checkLen(s, MaxDurationLength, "duration") }
func ChannelName(s string) string { return checkLen(s, MaxChannelNameLength, "channel name") }
func CTAText(s string) string     { return checkLen(s, MaxCTATextLength, "cta text") }
func URL(field, s string) string  { return checkLen(s, MaxURLLength, field) }

// QueueLength rejects widget requests carrying more videos than a queue panel shows.
func QueueLength(n int) string {
	if n > MaxQueueLength {
		return fmt.Sprintf("a widget accepts at most %d videos", MaxQueueLength)
	}
	return ""
}

// FieldLimits returns field names mapped to max lengths for the ingest client.
func FieldLimits() map[string]int {
	return map[string]int{
		"videoId":     MaxVideoIDLength,
		"title":       MaxTitleLength,
		"description": MaxDescriptionLength,
		"duration":    MaxDurationLength,
		"channelName": MaxChannelNameLength,
		"ctaText":     MaxCTATextLength,
		"url":         MaxURLLength,
		"queue":       MaxQueueLength,
	}
}
