package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// variantTagPattern is the wire format of the variant tag. It is matched against the
// full display title.
var variantTagPattern = regexp.MustCompile(`^(.*)\s\[Ver\s(\d+)-(\d+)\]$`)

// variantTagMarker is rejected inside base titles so that decoding stays unambiguous.
// It matches the tag prefix with any whitespace before it, as the tag pattern does.
var variantTagMarker = regexp.MustCompile(`\s\[Ver`)

// VariantIdentity identifies one concrete (topic, structure variant, script variant)
// combination. StructIdx and ScriptIdx are -1 for an unversioned singleton.
type VariantIdentity struct {
	BaseTitle string `json:"baseTitle"`
	StructIdx int    `json:"structIdx"`
	ScriptIdx int    `json:"scriptIdx"`
}

// Versioned reports whether the identity carries a variant tag.
func (v VariantIdentity) Versioned() bool {
	return v.StructIdx > 0 && v.ScriptIdx > 0
}

// Title renders the identity back into its display form.
func (v VariantIdentity) Title() string {
	if !v.Versioned() {
		return v.BaseTitle
	}
	return fmt.Sprintf("%s [Ver %d-%d]", v.BaseTitle, v.StructIdx, v.ScriptIdx)
}

// EncodeTitle appends the variant tag to baseTitle when more than one variant of
// either kind was requested; otherwise baseTitle is returned unchanged.
func EncodeTitle(baseTitle string, structIdx, scriptIdx, structTotal, scriptTotal int) string {
	if structTotal > 1 || scriptTotal > 1 {
		return fmt.Sprintf("%s [Ver %d-%d]", baseTitle, structIdx, scriptIdx)
	}
	return baseTitle
}

// DecodeTitle parses a display title. Titles without a tag decode to the title itself
// with both indices set to -1.
func DecodeTitle(title string) VariantIdentity {
	m := variantTagPattern.FindStringSubmatch(title)
	if m == nil {
		return VariantIdentity{BaseTitle: title, StructIdx: -1, ScriptIdx: -1}
	}
	s, errS := strconv.Atoi(m[2])
	k, errK := strconv.Atoi(m[3])
	if errS != nil || errK != nil {
		return VariantIdentity{BaseTitle: title, StructIdx: -1, ScriptIdx: -1}
	}
	return VariantIdentity{
		BaseTitle: strings.TrimSpace(m[1]),
		StructIdx: s,
		ScriptIdx: k,
	}
}

// HasVariantMarker reports whether title already contains a tag prefix.
func HasVariantMarker(title string) bool {
	return variantTagMarker.MatchString(title)
}

// ValidateBaseTitle rejects titles that cannot round-trip through the variant tag:
// empty titles, titles containing a tag prefix and titles with control characters
// such as line breaks, which the tag pattern does not match across.
func ValidateBaseTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if HasVariantMarker(title) {
		return &ValidationError{Field: "title", Reason: `must not contain a "[Ver" tag`}
	}
	for _, r := range title {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "title", Reason: "must not contain line breaks or control characters"}
		}
	}
	return nil
}
