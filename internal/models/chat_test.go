package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectChatIDIsSymmetric(t *testing.T) {
	assert.Equal(t, "ana_givi", DirectChatID("ana", "givi"))
	assert.Equal(t, "ana_givi", DirectChatID("givi", "ana"))
	assert.Equal(t, DirectChatID("a", "b"), DirectChatID("b", "a"))
}

func TestHasParticipant(t *testing.T) {
	chat := Chat{Participants: []string{"ana", "givi"}}
	assert.True(t, chat.HasParticipant("ana"))
	assert.False(t, chat.HasParticipant("mara"))
	assert.False(t, Chat{}.HasParticipant("ana"))
}

func TestSummaryForDirectChat(t *testing.T) {
	now := time.Now()
	chat := Chat{
		ID:                "ana_givi",
		Participants:      []string{"ana", "givi"},
		ParticipantNames:  StringMap{"ana": "Ana", "givi": "Givi"},
		ParticipantImages: StringMap{"ana": "http://img/ana", "givi": "http://img/givi"},
		LastMessage:       "hello",
		LastMessageTime:   now,
	}

	forGivi := chat.SummaryFor("givi")
	assert.Equal(t, "Ana", forGivi.DisplayName)
	assert.Equal(t, "http://img/ana", forGivi.PhotoURL)
	assert.Equal(t, "hello", forGivi.LastMessage)
	assert.Equal(t, now, forGivi.LastMessageTime)

	forAna := chat.SummaryFor("ana")
	assert.Equal(t, "Givi", forAna.DisplayName)
	assert.Equal(t, "http://img/givi", forAna.PhotoURL)
}

func TestSummaryForGroupChat(t *testing.T) {
	chat := Chat{
		ID:               "ana_givi",
		Participants:     []string{"ana", "givi", "mara"},
		ParticipantNames: StringMap{"ana": "Ana", "givi": "Givi", "mara": "Mara"},
		IsGroupChat:      true,
	}

	summary := chat.SummaryFor("ana")
	assert.True(t, summary.IsGroupChat)
	assert.Equal(t, "Ana, Givi, Mara", summary.DisplayName)
	assert.Empty(t, summary.PhotoURL)
}

func TestStringMapRoundTrip(t *testing.T) {
	m := StringMap{"ana": "Ana"}

	val, err := m.Value()
	require.NoError(t, err)

	var out StringMap
	require.NoError(t, out.Scan(val))
	assert.Equal(t, m, out)
}

func TestStringMapScanNil(t *testing.T) {
	var m StringMap
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestStringMapNilValue(t *testing.T) {
	var m StringMap
	val, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), val)
}
