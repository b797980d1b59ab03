package common

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestUserVoiceChannel(t *testing.T) {
	guild := &discordgo.Guild{
		VoiceStates: []*discordgo.VoiceState{
			{UserID: "u1", ChannelID: "c1"},
			{UserID: "u2", ChannelID: "c2"},
		},
	}

	assert.Equal(t, "c2", UserVoiceChannel(guild, "u2"))
	assert.Equal(t, "", UserVoiceChannel(guild, "u3"))
	assert.Equal(t, "", UserVoiceChannel(nil, "u1"))
}

func TestIsOwner(t *testing.T) {
	assert.False(t, IsOwner("anyone", ""))
	assert.False(t, IsOwner("", ""))
	assert.True(t, IsOwner("owner", "owner"))
	assert.False(t, IsOwner("someone", "owner"))
}
