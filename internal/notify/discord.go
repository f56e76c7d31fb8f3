package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/wardenlabs/reportrelay/internal/ingest"
	"github.com/wardenlabs/reportrelay/internal/stats"
	"go.uber.org/zap"
)

// ErrChannelNotConfigured is returned when notification delivery is
// attempted without a configured target channel.
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// ReportEmbedColor is the accent color of report notification embeds.
const ReportEmbedColor = 0xFF0000

// MaxInfoExcerptLen caps the additional-information excerpt shown in
// the embed. The stored report keeps the full text.
const MaxInfoExcerptLen = 1024

// DiscordNotifier delivers report notifications to a Discord channel
// over the REST API. No gateway connection is opened; the client is
// used purely for message creation.
type DiscordNotifier struct {
	client    bot.Client
	channelID snowflake.ID
	logger    *zap.Logger
}

// NewDiscordNotifier creates a notifier posting to the given channel.
func NewDiscordNotifier(token string, channelID uint64, logger *zap.Logger) (*DiscordNotifier, error) {
	client, err := disgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	return &DiscordNotifier{
		client:    client,
		channelID: snowflake.ID(channelID),
		logger:    logger,
	}, nil
}

// SendReport builds the report embed and posts it to the configured
// channel.
func (n *DiscordNotifier) SendReport(ctx context.Context, notification *ingest.Notification) error {
	if n.channelID == 0 {
		return ErrChannelNotConfigured
	}

	embed := n.buildReportEmbed(notification)

	_, err := n.client.Rest().CreateMessage(n.channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send report notification: %w", err)
	}

	return nil
}

// Close releases the underlying Discord client.
func (n *DiscordNotifier) Close(ctx context.Context) {
	n.client.Close(ctx)
}

// buildReportEmbed renders a notification into the report embed.
func (n *DiscordNotifier) buildReportEmbed(notification *ingest.Notification) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("🚨 Player Report").
		SetColor(ReportEmbedColor).
		AddField("📋 Abuse Type", fmt.Sprintf("**%s**", notification.AbuseType), false)

	if notification.AdditionalInfo != "" {
		builder.AddField("📝 Additional Information",
			truncate(notification.AdditionalInfo, MaxInfoExcerptLen), false)
	}

	builder.AddField("👤 Reporter", formatSubject(&notification.Reporter,
		fmt.Sprintf("Total Reports Made: `%d`", notification.Stats.ReporterTotal)), true)
	builder.AddField("🎯 Reported Player", formatSubject(&notification.Reported, ""), true)
	builder.AddField("📊 Report Statistics", formatStats(&notification.Stats), false)
	builder.AddField("🌐 Server Information",
		fmt.Sprintf("Job ID: `%s`\nPlace ID: `%d`", notification.ServerID, notification.PlaceID), false)

	if notification.Reported.Thumbnail != "" {
		builder.SetThumbnail(notification.Reported.Thumbnail)
	}
	if notification.Reporter.Thumbnail != "" {
		builder.SetImage(notification.Reporter.Thumbnail)
	}

	builder.SetFooter(fmt.Sprintf("Reported by %s • Report #%d • Total: %d",
		notification.Reporter.Name, notification.ReportID, notification.TotalReports), "")

	return builder.Build()
}

// formatSubject renders one side of the report as an embed field value.
func formatSubject(subject *ingest.SubjectPayload, extra string) string {
	name := subject.Name
	if subject.ProfileURL != "" {
		name = fmt.Sprintf("[%s](%s)", subject.Name, subject.ProfileURL)
	}

	value := fmt.Sprintf("%s\nID: `%d`", name, subject.UserID)
	if extra != "" {
		value += "\n" + extra
	}
	return value
}

// formatStats renders the subject statistics field.
func formatStats(summary *stats.SubjectSummary) string {
	value := fmt.Sprintf("Last 24 Hours: `%d`\nLast Month: `%d`",
		summary.Reports24h, summary.ReportsMonth)
	if summary.TimeSinceLast != "" {
		value += fmt.Sprintf("\nLast Report: `%s`", summary.TimeSinceLast)
	}
	if summary.MostCommonReason != "" {
		value += fmt.Sprintf("\nMost Common Reason: `%s`", summary.MostCommonReason)
	}
	return value
}

// truncate caps s at limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
