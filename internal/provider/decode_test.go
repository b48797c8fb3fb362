package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

func TestDecodeStructure(t *testing.T) {
	t.Run("items field", func(t *testing.T) {
		raw := json.RawMessage(`{"items":[{"title":"Arrest","titleUa":"Арешт","description":"He is caught","descriptionUa":"Його ловлять","estimatedDuration":"3 min"}]}`)
		sections, err := DecodeStructure(raw)
		require.NoError(t, err)
		require.Len(t, sections, 1)
		assert.Equal(t, "Arrest", sections[0].Title)
		assert.Equal(t, "Арешт", sections[0].TitleUa)
		assert.Equal(t, "3 min", sections[0].EstimatedDuration)
	})

	t.Run("other array field", func(t *testing.T) {
		raw := json.RawMessage(`{"parts":[{"title":"A","description":"B"}]}`)
		sections, err := DecodeStructure(raw)
		require.NoError(t, err)
		assert.Len(t, sections, 1)
	})

	t.Run("top level array", func(t *testing.T) {
		raw := json.RawMessage(`[{"title":"A","description":"B"},{"title":"C","description":"D"}]`)
		sections, err := DecodeStructure(raw)
		require.NoError(t, err)
		assert.Len(t, sections, 2)
	})

	t.Run("missing description", func(t *testing.T) {
		raw := json.RawMessage(`{"items":[{"title":"A"}]}`)
		_, err := DecodeStructure(raw)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})

	t.Run("no array", func(t *testing.T) {
		raw := json.RawMessage(`{"title":"A"}`)
		_, err := DecodeStructure(raw)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})

	t.Run("wrong item type", func(t *testing.T) {
		raw := json.RawMessage(`{"items":["A","B"]}`)
		_, err := DecodeStructure(raw)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})
}

func TestDecodeScript(t *testing.T) {
	content, err := DecodeScript(json.RawMessage(`{"scriptEnglish":"Rain fell.","scriptUkrainian":"Падав дощ."}`))
	require.NoError(t, err)
	assert.Equal(t, "Rain fell.", content.English)
	assert.Equal(t, "Падав дощ.", content.Ukrainian)

	content, err = DecodeScript(json.RawMessage(`{"scriptEnglish":"Only English"}`))
	require.NoError(t, err)
	assert.Empty(t, content.Ukrainian)

	_, err = DecodeScript(json.RawMessage(`{"scriptUkrainian":"Тільки українська"}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = DecodeScript(json.RawMessage(`{"scriptEnglish":42}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = DecodeScript(json.RawMessage(`["not","an","object"]`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestDecodeImagePrompts(t *testing.T) {
	prompts, err := DecodeImagePrompts(json.RawMessage(`{"items":[{"en":"A storm","ua":"Шторм"},{"en":"A ship"}]}`))
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "A ship", prompts[1].En)

	_, err = DecodeImagePrompts(json.RawMessage(`{"items":[{"ua":"Шторм"}]}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestDecodeRefinedPrompt(t *testing.T) {
	out, err := DecodeRefinedPrompt(json.RawMessage(`{"refinedPrompt":"Write darker."}`))
	require.NoError(t, err)
	assert.Equal(t, "Write darker.", out)

	_, err = DecodeRefinedPrompt(json.RawMessage(`{"refinedPrompt":""}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestDecodeScenes(t *testing.T) {
	const scene = `{"segmentText":"The column moved.","segmentTextUa":"Колона рушила.","imagePrompt":"Style, a column","imagePromptUa":"Стиль, колона"}`

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"bare array", `[` + scene + `]`, 1, false},
		{"items object", `{"items":[` + scene + `,` + scene + `]}`, 2, false},
		{"empty list", `{"items":[]}`, 0, true},
		{"missing translation", `[{"segmentText":"a","imagePrompt":"b","imagePromptUa":"c"}]`, 0, true},
		{"blank prompt", `[{"segmentText":"a","segmentTextUa":"b","imagePrompt":" ","imagePromptUa":"c"}]`, 0, true},
		{"null scene", `[null]`, 0, true},
		{"not json", `scenes`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			scenes, err := DecodeScenes(json.RawMessage(tc.raw))
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrMalformedResponse)
				return
			}
			require.NoError(t, err)
			require.Len(t, scenes, tc.want)
			assert.Equal(t, "Колона рушила.", scenes[0].SegmentTextUa)
			assert.Equal(t, "Style, a column", scenes[0].ImagePrompt)
		})
	}
}

func TestDecodeImagePrompt(t *testing.T) {
	out, err := DecodeImagePrompt(json.RawMessage(`{"imagePrompt":"  Hyper-realistic harbor at dawn "}`))
	require.NoError(t, err)
	assert.Equal(t, "Hyper-realistic harbor at dawn", out)

	_, err = DecodeImagePrompt(json.RawMessage(`"just text"`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestDecodeNicheTemplates(t *testing.T) {
	out, err := DecodeNicheTemplates(json.RawMessage(`{"structurePrompt":"Plan {{TITLE}}","scriptPrompt":"Write part {{CURRENT_PART_NUM}}"}`))
	require.NoError(t, err)
	assert.Equal(t, "Plan {{TITLE}}", out.StructurePrompt)
	assert.Equal(t, "Write part {{CURRENT_PART_NUM}}", out.ScriptPrompt)

	_, err = DecodeNicheTemplates(json.RawMessage(`{"structurePrompt":"Plan"}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestDecodeKeywords(t *testing.T) {
	words, err := DecodeKeywords(json.RawMessage(`["war", " ", "tanks "]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"war", "tanks"}, words)

	words, err = DecodeKeywords(json.RawMessage(`{"items":["history"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"history"}, words)

	_, err = DecodeKeywords(json.RawMessage(`[""]`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = DecodeKeywords(json.RawMessage(`[1, 2]`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}
