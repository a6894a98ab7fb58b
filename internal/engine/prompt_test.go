//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"strings"
	"testing"
)

func TestBuild_DefaultProfile(t *testing.T) {
	b := NewPromptBuilder("")

	prompt := b.Build(Profile{})

	if !strings.HasPrefix(prompt, DefaultSystemPrompt) {
		t.Error("prompt does not start with the base instructions")
	}
	for _, want := range []string{
		ageRegisterFragments[DefaultAgeRegister],
		knowledgeLevelFragments[DefaultKnowledgeLevel],
		responseLengthFragments[DefaultResponseLength],
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing default fragment %q", want)
		}
	}
}

func TestBuild_AxisSelection(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{name: "child", profile: Profile{AgeRegister: "child"}, want: "for a child"},
		{name: "teen", profile: Profile{AgeRegister: "teen"}, want: "for a teenager"},
		{name: "young adult", profile: Profile{AgeRegister: "young_adult"}, want: "for a young adult"},
		{name: "senior", profile: Profile{AgeRegister: "senior"}, want: "for a senior reader"},
		{name: "newcomer", profile: Profile{KnowledgeLevel: "newcomer"}, want: "no prior knowledge"},
		{name: "confirmed", profile: Profile{KnowledgeLevel: "confirmed"}, want: "solid working knowledge"},
		{name: "expert", profile: Profile{KnowledgeLevel: "expert"}, want: "deep expertise"},
		{name: "brief", profile: Profile{ResponseLength: "brief"}, want: "one or two sentences"},
		{name: "developed", profile: Profile{ResponseLength: "developed"}, want: "thoroughly"},
	}

	b := NewPromptBuilder("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := b.Build(tt.profile)
			if !strings.Contains(prompt, tt.want) {
				t.Errorf("prompt for %+v missing %q", tt.profile, tt.want)
			}
		})
	}
}

func TestBuild_UnrecognizedValuesFallBack(t *testing.T) {
	b := NewPromptBuilder("")

	prompt := b.Build(Profile{
		AgeRegister:    "martian",
		KnowledgeLevel: "omniscient",
		ResponseLength: "epic",
	})

	if prompt == "" {
		t.Fatal("prompt is empty")
	}
	if prompt != b.Build(Profile{}) {
		t.Error("unrecognized axis values do not resolve to the default prompt")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := NewPromptBuilder("")
	profile := Profile{AgeRegister: "teen", KnowledgeLevel: "expert", ResponseLength: "brief"}

	if b.Build(profile) != b.Build(profile) {
		t.Error("Build is not deterministic")
	}
}

func TestBuild_AllCombinations(t *testing.T) {
	ages := []string{"child", "teen", "young_adult", "adult", "senior"}
	levels := []string{"newcomer", "familiar", "confirmed", "expert"}
	lengths := []string{"brief", "concise", "developed"}

	b := NewPromptBuilder("")
	seen := make(map[string]bool)

	for _, age := range ages {
		for _, level := range levels {
			for _, length := range lengths {
				prompt := b.Build(Profile{
					AgeRegister:    age,
					KnowledgeLevel: level,
					ResponseLength: length,
				})
				if prompt == "" {
					t.Fatalf("empty prompt for %s/%s/%s", age, level, length)
				}
				if seen[prompt] {
					t.Errorf("duplicate prompt for %s/%s/%s", age, level, length)
				}
				seen[prompt] = true
			}
		}
	}

	if len(seen) != len(ages)*len(levels)*len(lengths) {
		t.Errorf("got %d distinct prompts, want %d", len(seen), len(ages)*len(levels)*len(lengths))
	}
}

func TestBuild_CustomBase(t *testing.T) {
	b := NewPromptBuilder("You are the Catena documentation assistant.")

	prompt := b.Build(Profile{})

	if !strings.HasPrefix(prompt, "You are the Catena documentation assistant.") {
		t.Error("prompt does not start with the custom base")
	}
	if strings.Contains(prompt, DefaultSystemPrompt) {
		t.Error("custom base did not replace the default instructions")
	}
}
