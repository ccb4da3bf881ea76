package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentionsPlain(t *testing.T) {
	index := UsernameIndex{"alice": 1, "bob": 2}

	got := ExtractMentions("hello user/alice friend", index)
	assert.Equal(t, []uint{1}, got)
}

func TestExtractMentionsHTML(t *testing.T) {
	index := UsernameIndex{"alice-bob": 3, "alice": 1}

	// HTML mode stops the token at the first quote or slash.
	got := ExtractMentions(`<p>hello user/alice-bob/x friend</p>`, index)
	assert.Equal(t, []uint{3}, got)
}

func TestExtractMentionsUnknownDropped(t *testing.T) {
	index := UsernameIndex{"alice": 1}

	got := ExtractMentions("ping user/alice and user/stranger", index)
	assert.Equal(t, []uint{1}, got)
}

func TestExtractMentionsKeepsOrderAndDuplicates(t *testing.T) {
	index := UsernameIndex{"alice": 1, "bob": 2}

	got := ExtractMentions("user/bob user/alice user/bob", index)
	assert.Equal(t, []uint{2, 1, 2}, got)
}

func TestExtractMentionsNone(t *testing.T) {
	index := UsernameIndex{"alice": 1}

	assert.Nil(t, ExtractMentions("no mentions here", index))
}

func TestExtractMentionsGuard(t *testing.T) {
	index := UsernameIndex{"alice": 1}

	content := strings.Repeat("user/alice ", 1001)
	assert.Nil(t, ExtractMentions(content, index))

	// At the limit extraction still runs.
	content = strings.Repeat("user/alice ", 1000)
	got := ExtractMentions(content, index)
	assert.Len(t, got, 1000)
}
