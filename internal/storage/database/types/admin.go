package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// AdminUser represents a Discord user granted access to the admin
// surface. Uniqueness is enforced on DiscordUserID; re-adding an
// existing admin is a no-op.
type AdminUser struct {
	ID            int64        `bun:",pk,autoincrement" json:"id"`
	DiscordUserID snowflake.ID `bun:",notnull,unique"   json:"discord_user_id"` // Discord user ID of the admin
	AddedBy       uint64       `bun:",nullzero"         json:"added_by,omitempty"` // Who granted the access (0 if seeded from config)
	AddedAt       time.Time    `bun:",nullzero,notnull,default:current_timestamp" json:"added_at"`
}
