package treatment

import (
	"strings"
	"testing"
)

func TestSystemPromptSevereTier(t *testing.T) {
	sys := SystemPrompt(SeveritySevere)

	if !strings.Contains(sys, SevereDisclaimer) {
		t.Fatalf("severe system prompt missing dermatologist disclaimer")
	}
	if !strings.Contains(sys, "DO NOT suggest isotretinoin") {
		t.Fatalf("severe system prompt missing isotretinoin prohibition")
	}
	if !strings.Contains(sys, "DO NOT suggest hormonal pills") {
		t.Fatalf("severe system prompt missing hormonal prohibition")
	}
}

func TestSystemPromptTierContent(t *testing.T) {
	mild := SystemPrompt(SeverityMild)
	if !strings.Contains(mild, "Salicylic acid 0.5-2%") {
		t.Fatalf("mild tier missing salicylic acid guidance")
	}
	if strings.Contains(mild, SevereDisclaimer) {
		t.Fatalf("mild tier must not carry the severe disclaimer")
	}

	modSevere := SystemPrompt(SeverityModerateSevere)
	if !strings.Contains(modSevere, "Doxycycline") {
		t.Fatalf("moderate-severe tier missing oral guidance")
	}

	// Unknown labels fall back to the mild tier rather than failing.
	unknown := SystemPrompt(SeverityUnknown)
	if !strings.Contains(unknown, "Salicylic acid") {
		t.Fatalf("unknown severity did not fall back to mild guidance")
	}
}

func TestPromptsAreDeterministic(t *testing.T) {
	profile := UserProfile{AgeGroup: "18-25", SkinType: "Oily"}
	a := BuildFirstDayPrompt(SeverityModerate, "chin", profile)
	b := BuildFirstDayPrompt(SeverityModerate, "chin", profile)
	if a != b {
		t.Fatalf("BuildFirstDayPrompt not deterministic")
	}
}

func TestMissingProfileFieldsDegradeToUnknown(t *testing.T) {
	prompt := BuildFirstDayPrompt(SeverityMild, "", UserProfile{})
	if !strings.Contains(prompt, "Age Group: Unknown") {
		t.Fatalf("missing age group did not degrade to Unknown:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Dominant Area: Unknown") {
		t.Fatalf("missing dominant area did not degrade to Unknown")
	}
	if !strings.Contains(prompt, "Allergies: None") {
		t.Fatalf("missing allergies did not degrade to None")
	}
	if !strings.Contains(prompt, "Treatment History: Treatment-naive") {
		t.Fatalf("missing treatment history did not default")
	}
}

func TestBuildBatchPromptStructure(t *testing.T) {
	prompt := BuildBatchPrompt(SeverityModerate, "forehead", UserProfile{}, 15)
	for _, fragment := range []string{
		"EXACTLY 15 days",
		"sequential from 1 to 15",
		`"days"`,
		"Phase 1 (Day 1-5)",
		"Phase 2 (Day 6-10)",
		"Phase 3 (Day 11-15)",
		"Dominant Area: forehead",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Fatalf("batch prompt missing %q", fragment)
		}
	}
}

func TestBuildNextDayPromptFeedbackPolarity(t *testing.T) {
	prev := PreviousDay{DayNumber: 4, Morning: "m", Afternoon: "a", Evening: "e"}
	profile := UserProfile{SkinType: "Dry"}

	negative := BuildNextDayPrompt(SeverityModerate, "chin", profile, prev, "negative", "stinging")
	if !strings.Contains(negative, "Reduce active-ingredient strength by 50%") {
		t.Fatalf("negative prompt missing strength reduction rule")
	}
	if !strings.Contains(negative, "USER NOTES: stinging") {
		t.Fatalf("negative prompt missing user notes")
	}
	if !strings.Contains(negative, `"day": 5`) {
		t.Fatalf("negative prompt not targeting day 5")
	}

	positive := BuildNextDayPrompt(SeverityModerate, "chin", profile, prev, "positive", "")
	if !strings.Contains(positive, "Raise the motivational tone") {
		t.Fatalf("positive prompt missing motivational rule")
	}
	if !strings.Contains(positive, "Continue a similar routine") {
		t.Fatalf("positive prompt missing continuation rule")
	}
}

func TestTreatmentHistoryPhrasing(t *testing.T) {
	p := UserProfile{UsingTreatment: true}
	if got := p.treatmentHistory(); got != "Currently using treatment" {
		t.Fatalf("treatmentHistory = %q", got)
	}
	p.StoppedDueToSideEffects = true
	if got := p.treatmentHistory(); got != "Previously irritated by treatments" {
		t.Fatalf("treatmentHistory = %q", got)
	}
}
