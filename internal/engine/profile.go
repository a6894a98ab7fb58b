//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

// Profile describes the reader an answer is written for. The three axes are
// independent; an absent or unrecognized value on any axis silently resolves
// to that axis default.
type Profile struct {
	AgeRegister    string `json:"age_register,omitempty"`
	KnowledgeLevel string `json:"knowledge_level,omitempty"`
	ResponseLength string `json:"response_length,omitempty"`
}

// Axis defaults.
const (
	DefaultAgeRegister    = "adult"
	DefaultKnowledgeLevel = "familiar"
	DefaultResponseLength = "concise"
)

var ageRegisterFragments = map[string]string{
	"child": "Write for a child: use simple words, short sentences and " +
		"friendly, concrete examples. Avoid jargon entirely.",
	"teen": "Write for a teenager: keep the tone casual and engaging, use " +
		"relatable examples and never talk down to the reader.",
	"young_adult": "Write for a young adult: be direct and practical, with " +
		"current examples and no unnecessary formality.",
	"adult": "Write for an adult reader: use a clear, professional tone " +
		"with balanced detail.",
	"senior": "Write for a senior reader: use a respectful, unhurried tone, " +
		"spell out abbreviations and avoid assuming recent cultural context.",
}

var knowledgeLevelFragments = map[string]string{
	"newcomer": "Assume no prior knowledge of the subject: define every " +
		"term on first use and build up from the fundamentals.",
	"familiar": "Assume passing familiarity with the subject: define " +
		"specialized terms but skip the basics.",
	"confirmed": "Assume solid working knowledge: use standard terminology " +
		"freely and focus on specifics rather than background.",
	"expert": "Assume deep expertise: be precise and technical, skip " +
		"introductory framing and go straight to the substance.",
}

var responseLengthFragments = map[string]string{
	"brief":   "Answer in one or two sentences. No preamble.",
	"concise": "Answer in a short paragraph. Include only what the question needs.",
	"developed": "Answer thoroughly: cover the relevant details, caveats " +
		"and examples, using several paragraphs if needed.",
}

// axisFragment returns the instruction fragment for value, falling back to
// the axis default when the value is not recognized.
func axisFragment(fragments map[string]string, value, fallback string) string {
	if f, ok := fragments[value]; ok {
		return f
	}
	return fragments[fallback]
}
