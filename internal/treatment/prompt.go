package treatment

import (
	"fmt"
	"strings"
)

// SevereDisclaimer must appear in every severe-tier plan.
const SevereDisclaimer = "Severe acne requires dermatologist supervision to prevent scarring."

// TierGuidance is the fixed ingredient guidance for one severity tier.
// Content rules are data, not control flow.
type TierGuidance struct {
	Morning   []string
	Night     []string
	Alternate []string
	Oral      []string
}

var tierGuidance = map[Severity]TierGuidance{
	SeverityCleanskin: {
		Morning: []string{
			"Gentle face wash",
			"Lightweight oil-free moisturizer",
			"Broad-spectrum sunscreen",
		},
		Night: []string{
			"Gentle cleanser",
			"Moisturizer",
		},
	},
	SeverityMild: {
		Morning: []string{
			"Gentle face wash",
			"Salicylic acid 0.5-2%",
			"Oil-free moisturizer",
			"Paraben-free sunscreen",
		},
		Night: []string{
			"Gentle cleanser",
			"Adapalene 0.1% (alternate nights first week)",
			"If sensitive skin: replace with Azelaic acid 10-15%",
			"Moisturizer after 20-30 minutes",
		},
	},
	SeverityModerate: {
		Morning: []string{
			"Salicylic acid face wash",
			"Clindamycin 1% gel (thin layer)",
			"Oil-free moisturizer",
			"Sunscreen",
		},
		Night: []string{
			"Gentle cleanser",
			"Adapalene 0.1% OR Tretinoin 0.025%",
			"Moisturizer",
		},
		Alternate: []string{
			"Benzoyl peroxide 2.5% (morning)",
			"Adapalene (night)",
		},
	},
	SeverityModerateSevere: {
		Morning: []string{
			"Benzoyl peroxide 2.5%",
			"Clindamycin 1% (short term only)",
			"Paraben-free moisturizer",
			"Paraben-free sunscreen",
		},
		Night: []string{
			"Gentle cleanser",
			"Adapalene 0.1% OR Tretinoin 0.025%",
			"Moisturizer",
		},
		Oral: []string{
			"Doxycycline 50-100 mg once daily (maximum 14-15 days)",
		},
	},
	SeveritySevere: {
		Morning: []string{
			"Gentle cleanser",
			"Benzoyl peroxide 2.5%",
			"Moisturizer + sunscreen",
		},
		Night: []string{
			"Gentle cleanser",
			"Adapalene OR Azelaic acid",
			"Moisturizer",
		},
		Oral: []string{
			"DO NOT suggest isotretinoin",
			"DO NOT suggest hormonal pills",
			`You may state: "Dermatologists may prescribe oral antibiotics under supervision."`,
		},
	},
}

// GuidanceFor returns the tier table entry for a severity, falling back to
// the mild tier for labels with no entry (unknown).
func GuidanceFor(severity Severity) TierGuidance {
	if g, ok := tierGuidance[severity]; ok {
		return g
	}
	return tierGuidance[SeverityMild]
}

// SystemPrompt is the fixed generation instruction: JSON-only output plus
// the severity-tier content rules. Never varies per call except through
// the severity tier.
func SystemPrompt(severity Severity) string {
	g := GuidanceFor(severity)

	var b strings.Builder
	b.WriteString("You are a strict medical skincare AI. Return ONLY valid JSON with no markdown, no explanations. Pure JSON only.\n\n")
	b.WriteString("SEVERITY-BASED RULES (STRICTLY FOLLOW)\n\n")
	b.WriteString(fmt.Sprintf("Severity tier: %s\n\nMorning:\n", severity))
	for _, line := range g.Morning {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\nNight:\n")
	for _, line := range g.Night {
		b.WriteString("- " + line + "\n")
	}
	if len(g.Alternate) > 0 {
		b.WriteString("\nAlternate (antibiotic-free option):\n")
		for _, line := range g.Alternate {
			b.WriteString("- " + line + "\n")
		}
	}
	if len(g.Oral) > 0 {
		b.WriteString("\nOral:\n")
		for _, line := range g.Oral {
			b.WriteString("- " + line + "\n")
		}
	}
	if severity == SeveritySevere {
		b.WriteString(fmt.Sprintf("\nYou MUST include this statement in the motivation field:\n%q\n", SevereDisclaimer))
	}
	return b.String()
}

// UserProfile carries the personalization variables embedded into prompts.
// Zero values degrade to "Unknown" rather than failing.
type UserProfile struct {
	AgeGroup                string
	Sex                     string
	SkinType                string
	SensitiveSkin           string
	StressLevel             string
	SleepHours              string
	Allergies               []string
	UsingTreatment          bool
	StoppedDueToSideEffects bool
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func (p UserProfile) allergyList() string {
	if len(p.Allergies) == 0 {
		return "None"
	}
	return strings.Join(p.Allergies, ", ")
}

func (p UserProfile) treatmentHistory() string {
	if !p.UsingTreatment {
		return "Treatment-naive"
	}
	if p.StoppedDueToSideEffects {
		return "Previously irritated by treatments"
	}
	return "Currently using treatment"
}

func patientContext(severity Severity, dominantArea string, profile UserProfile) string {
	return fmt.Sprintf(`PATIENT CONTEXT

Severity: %s
Dominant Area: %s
Age Group: %s
Gender: %s
Skin Type: %s
Sensitive Skin: %s
Stress Level: %s
Sleep Hours: %s
Allergies: %s
Treatment History: %s
`,
		severity,
		orUnknown(dominantArea),
		orUnknown(profile.AgeGroup),
		orUnknown(profile.Sex),
		orUnknown(profile.SkinType),
		orUnknown(profile.SensitiveSkin),
		orUnknown(profile.StressLevel),
		orUnknown(profile.SleepHours),
		profile.allergyList(),
		profile.treatmentHistory(),
	)
}

const dayShape = `{
  "day": %d,
  "morning": "...",
  "afternoon": "...",
  "evening": "...",
  "motivation": "...",
  "adjustment_reason": "..."
}`

// BuildFirstDayPrompt is the incremental-mode start instruction: exactly
// one day object for day 1.
func BuildFirstDayPrompt(severity Severity, dominantArea string, profile UserProfile) string {
	var b strings.Builder
	b.WriteString("Generate day 1 of a personalized acne treatment plan.\n\n")
	b.WriteString("Return ONLY a single valid JSON object with exactly this structure:\n\n")
	b.WriteString(fmt.Sprintf(dayShape, 1))
	b.WriteString("\n\nDo NOT include markdown. Do NOT wrap the response in code blocks. Do NOT include explanations outside JSON.\n\n")
	b.WriteString(patientContext(severity, dominantArea, profile))
	b.WriteString("\nEach field must contain detailed instructions in clear patient-friendly language.\n")
	return b.String()
}

// BuildBatchPrompt is the batch-mode start instruction: exactly dayCount
// sequential day objects in a days array, split into the three clinical
// phases.
func BuildBatchPrompt(severity Severity, dominantArea string, profile UserProfile, dayCount int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Generate a STRICT, VALID JSON %d-day acne treatment plan.\n\n", dayCount))
	b.WriteString("Return ONLY valid JSON.\nDo NOT include markdown.\nDo NOT include explanations outside JSON.\nDo NOT wrap response in code blocks.\nDo NOT include comments.\n\n")
	b.WriteString("The JSON structure MUST be:\n\n{\n  \"days\": [\n")
	b.WriteString(indent(fmt.Sprintf(dayShape, 1), "    "))
	b.WriteString("\n  ]\n}\n\n")
	b.WriteString(fmt.Sprintf("You MUST generate EXACTLY %d days.\nDays MUST be sequential from 1 to %d.\nEach day must differ meaningfully (no repetition).\n\n", dayCount, dayCount))
	b.WriteString(patientContext(severity, dominantArea, profile))

	phase1End := dayCount / 3
	phase2End := 2 * dayCount / 3
	b.WriteString(fmt.Sprintf(`
CLINICAL STRUCTURE REQUIREMENTS

You MUST divide treatment into 3 phases:

Phase 1 (Day 1-%d): Stabilization Phase
- Introduce actives gradually
- Lower frequency
- Focus on barrier repair

Phase 2 (Day %d-%d): Active Treatment Phase
- Increase strength or frequency if tolerated
- Target dominant area specifically
- Introduce rotation of ingredients

Phase 3 (Day %d-%d): Recovery & Maintenance Phase
- Reduce irritation risk
- Stabilize improvements
- Prevent recurrence

PERSONALIZATION RULES (MANDATORY)

1. Age-based adaptation
2. Gender-based hormonal considerations
3. Skin-type adjustments
4. Sensitivity modifications
5. Stress & sleep adjustments
6. Dominant area targeting
7. Ingredient rotation across days
8. Progressive intensity increase
9. No repetitive daily routine
`, phase1End, phase1End+1, phase2End, phase2End+1, dayCount))
	return b.String()
}

// PreviousDay is the reviewed day fed back into the next-day prompt.
type PreviousDay struct {
	DayNumber int
	Morning   string
	Afternoon string
	Evening   string
}

// BuildNextDayPrompt embeds yesterday's routine plus the user's feedback
// polarity and notes. Positive feedback continues and may intensify the
// routine with a raised motivational tone; negative feedback halves active
// ingredient strength and substitutes gentler alternatives, with the
// adjustment_reason explaining the change.
func BuildNextDayPrompt(severity Severity, dominantArea string, profile UserProfile, prev PreviousDay, feedback string, notes string) string {
	nextDay := prev.DayNumber + 1

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Generate day %d of an ongoing personalized acne treatment plan.\n\n", nextDay))
	b.WriteString("Return ONLY a single valid JSON object with exactly this structure:\n\n")
	b.WriteString(fmt.Sprintf(dayShape, nextDay))
	b.WriteString("\n\nDo NOT include markdown. Do NOT wrap the response in code blocks.\n\n")
	b.WriteString(patientContext(severity, dominantArea, profile))
	b.WriteString(fmt.Sprintf(`
PREVIOUS DAY (day %d):
Morning: %s
Afternoon: %s
Evening: %s

USER FEEDBACK: %s
USER NOTES: %s

`, prev.DayNumber, prev.Morning, prev.Afternoon, prev.Evening, feedback, orUnknown(notes)))

	if feedback == "negative" {
		b.WriteString(`ADJUSTMENT RULES:
- The user reacted badly to the previous routine.
- Reduce active-ingredient strength by 50% and substitute gentler alternatives.
- The adjustment_reason field MUST explain what was reduced or replaced and why.
`)
	} else {
		b.WriteString(`ADJUSTMENT RULES:
- The previous routine worked well for the user.
- Continue a similar routine; intensify gradually only if safe for the severity tier.
- Raise the motivational tone in the motivation field.
- The adjustment_reason field MUST state why the routine was kept or intensified.
`)
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
