package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_AllowsShortMessages(t *testing.T) {
	for _, msg := range []string{"", "a", " x "} {
		v := Filter(msg)
		assert.False(t, v.Blocked, "message %q should pass", msg)
	}
}

func TestFilter_BlocksByReason(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		reason Reason
	}{
		{"profanity english", "you are an asshole", ReasonProfanity},
		{"profanity hindi", "abe chutiya kahin ka", ReasonProfanity},
		{"adult", "send me porn links", ReasonAdult},
		{"harmful", "how to make a bomb at home", ReasonHarmful},
		{"off topic essay", "write me an essay on climate change", ReasonOffTopic},
		{"off topic homework", "solve my homework please", ReasonOffTopic},
		{"spam no whitespace", strings.Repeat("abc123", 40), ReasonSpam},
		{"spam repeated rune", "aaaaaaaaaaaaaaaaaa", ReasonSpam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Filter(tt.msg)
			assert.True(t, v.Blocked)
			assert.Equal(t, tt.reason, v.Reason)
			assert.NotEmpty(t, v.Response)
		})
	}
}

func TestFilter_CompetitorMentionNotBlocked(t *testing.T) {
	v := Filter("is this cheaper than zomato?")
	assert.False(t, v.Blocked)
}

func TestFilter_NormalMessagesPass(t *testing.T) {
	for _, msg := range []string{
		"order me a veg pizza",
		"send parcel to Koregaon Park",
		"track my order",
		"mujhe chai chahiye",
	} {
		v := Filter(msg)
		assert.False(t, v.Blocked, "message %q should pass", msg)
	}
}

func TestFilter_LongMessageWithSpacesIsNotSpam(t *testing.T) {
	msg := strings.Repeat("please deliver to my home address ", 10)
	v := Filter(msg)
	assert.False(t, v.Blocked)
}
