package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrack-profile/internal/domain"
)

func TestLoadTemplate(t *testing.T) {
	for _, variant := range []string{"free", "paid"} {
		tmpl, err := LoadTemplate(variant)
		require.NoError(t, err, variant)
		assert.Contains(t, tmpl, "<svg", variant)
		assert.Contains(t, tmpl, TokenDisplayName, variant)
	}
}

func TestLoadTemplateUnknownVariant(t *testing.T) {
	_, err := LoadTemplate("platinum")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestLoadTemplateRejectsTraversal(t *testing.T) {
	_, err := LoadTemplate("../templates/free")
	assert.Error(t, err)
}

func TestTemplateAvatarSlots(t *testing.T) {
	// The free card deliberately has no avatar slot; rendering it must not
	// trigger a remote fetch. The paid card embeds the avatar.
	free, err := LoadTemplate("free")
	require.NoError(t, err)
	assert.NotContains(t, free, TokenAvatarHref)

	paid, err := LoadTemplate("paid")
	require.NoError(t, err)
	assert.Contains(t, paid, TokenAvatarHref)
}
