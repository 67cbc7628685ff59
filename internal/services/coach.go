package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"studypath-backend/internal/models"
)

// Deterministic fallbacks used when Gemini is unconfigured or errors out.
// Diagnosis must never fail because the coach is down.
const (
	fallbackFeedbackNoKey = "Great job taking the quiz! Keep focusing on your weak areas."
	fallbackFeedbackError = "Keep practicing! Consistency is key to mastering these concepts."
)

// CoachService is the Gemini-backed advice layer. A nil client (no API key)
// degrades every method to its deterministic fallback.
type CoachService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewCoachService(apiKey string, concurrentReqs int) (*CoachService, error) {
	if apiKey == "" {
		log.Println("WARNING: GEMINI_API_KEY not set, coach running in fallback mode")
		return &CoachService{}, nil
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.5-flash")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &CoachService{client: client, model: model, rateChan: rateChan}, nil
}

func (s *CoachService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *CoachService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *CoachService) releaseRate() {
	s.rateChan <- struct{}{}
}

// GenerateCoachingFeedback returns a 1-2 sentence tip tailored to the weakest
// pillar. Never returns an error, only a weaker message.
func (s *CoachService) GenerateCoachingFeedback(ctx context.Context, profile string, weakPillars []string, topic string, scorePercent float64) string {
	if s.model == nil {
		return fallbackFeedbackNoKey
	}
	if err := s.acquireRate(ctx); err != nil {
		return fallbackFeedbackError
	}
	defer s.releaseRate()

	pillars := "None identified"
	if len(weakPillars) > 0 {
		pillars = strings.Join(weakPillars, ", ")
	}

	prompt := fmt.Sprintf(`Act as a friendly, expert coding tutor.
User Context:
- Topic: %s
- Score: %.0f%%
- Weakest Pillars: %s

Task:
Write a VERY CONCISE, actionable coaching tip (1-2 sentences MAX).
- Be direct and encouraging.
- Specific advice based on the weakest pillar:
  * Concept: "Visualize the core idea."
  * Implementation: "Practice syntax in an IDE."
  * Complexity: "Review Big-O analysis."
  * Debugging: "Trace code step-by-step."
  * Application: "Connect to real-world examples."

Output example: "You have the logic down, but syntax is tripping you up. Spend 10 mins coding plain functions to build muscle memory."`,
		topic, scorePercent, pillars)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("Coach feedback generation failed: %v", err)
		return fallbackFeedbackError
	}

	feedback := strings.TrimSpace(extractText(resp))
	if feedback == "" {
		return fallbackFeedbackError
	}
	return feedback
}

// pillarStyleHints maps a weak pillar to the video style keywords that best
// address it in a search query.
var pillarStyleHints = []struct {
	pillar string
	hint   string
}{
	{models.PillarConcept, "Whiteboard animation logic visualization"},
	{models.PillarImplementation, "Live coding implementation tutorial python java"},
	{models.PillarComplexity, "Big-O time complexity analysis optimization"},
	{models.PillarDebugging, "Common mistakes debugging guide fix errors"},
	{models.PillarApplication, "Real world application system design interview question"},
}

func stylePreference(weakPillars []string) string {
	for _, mapping := range pillarStyleHints {
		for _, p := range weakPillars {
			if p == mapping.pillar {
				return mapping.hint
			}
		}
	}
	return ""
}

// GenerateSmartSearchQuery builds a keyword-rich query string for the vector
// search. Fallbacks keep it deterministic when Gemini is unavailable.
func (s *CoachService) GenerateSmartSearchQuery(ctx context.Context, profile, topic string, weakPillars []string) string {
	style := stylePreference(weakPillars)

	if s.model == nil {
		return fmt.Sprintf("%s tutorial %s", topic, profile)
	}
	if err := s.acquireRate(ctx); err != nil {
		return queryFallback(topic, style)
	}
	defer s.releaseRate()

	pillars := "General"
	if len(weakPillars) > 0 {
		pillars = strings.Join(weakPillars, ", ")
	}
	styleDesc := style
	if styleDesc == "" {
		styleDesc = "General tutorial"
	}

	prompt := fmt.Sprintf(`Act as a Search Engine Optimization expert for Educational Videos.

Context:
- Topic: %s
- User Profile: %s
- Weak Pillars: %s
- Recommended Video Style: %s

Task:
Generate a SINGLE, optimized YouTube search query string to find the perfect video.
The query must be suitable for Vector Search embedding (keyword rich, semantic).

Rules:
- Combine the Topic + Style + Profile.
- RETURN ONLY THE QUERY STRING. NO QUOTES.

Example Output: "Stack data structure whiteboard animation logic visualization"`,
		topic, profile, pillars, styleDesc)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Printf("Smart query generation failed: %v", err)
		return queryFallback(topic, style)
	}

	query := strings.TrimSpace(extractText(resp))
	query = strings.ReplaceAll(query, `"`, "")
	if query == "" {
		return queryFallback(topic, style)
	}
	return query
}

func queryFallback(topic, style string) string {
	if style != "" {
		return fmt.Sprintf("%s %s", topic, style)
	}
	return fmt.Sprintf("%s tutorial", topic)
}

// GenerateStudyNotes produces markdown notes for a recommended video. When a
// transcript is supplied the notes are grounded in it; otherwise they are
// generated from the topic alone.
func (s *CoachService) GenerateStudyNotes(ctx context.Context, topic, videoTitle, transcript string) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("coach is not configured")
	}
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	var prompt string
	if transcript != "" {
		const maxTranscriptChars = 40000
		if len(transcript) > maxTranscriptChars {
			transcript = transcript[:maxTranscriptChars] + "\n\n[... transcript truncated for context limit ...]"
		}

		prompt = fmt.Sprintf(`You are an expert note-taker converting a video lecture into detailed written notes.

=== VIDEO TRANSCRIPT ===
%s
=== END TRANSCRIPT ===

Topic: %s
Video Title: %s

TASK: Convert this transcript into well-structured study notes focusing ONLY on the educational content.

CRITICAL RULES:
1. SKIP ALL YOUTUBE INTRO FLUFF:
   - Skip greetings, channel promotions, subscribe reminders, sponsor mentions
   - Skip "today's agenda" and off-topic chat
   - START DIRECTLY from where the actual LEARNING content begins

2. Focus ONLY on educational material: concepts, code examples, technical definitions, step-by-step tutorials.

3. Use proper Markdown: "##" for main topics, "###" for subtopics, "-" for bullets, code blocks with language tags.

4. Write comprehensive, detailed notes that capture all the technical content.

BEGIN YOUR NOTES (start directly with the first concept/topic):

# %s

`, transcript, topic, videoTitle, topic)
	} else {
		prompt = fmt.Sprintf(`You are an expert note-taker creating comprehensive study notes.

Topic: %s
Video Title: %s

TASK: Create detailed study notes on this topic following a natural, logical structure.

RULES:
1. Structure based on what makes sense for the topic.
2. Do NOT use a rigid template.
3. Use proper Markdown: "##" for main sections, "###" for subsections, "-" for bullets, code blocks with language tags.
4. Include code examples where relevant.

BEGIN YOUR NOTES:

# %s - Study Notes

`, topic, videoTitle, topic)
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("notes generation failed: %w", err)
	}

	notes := strings.TrimSpace(extractText(resp))
	if notes == "" {
		return "", fmt.Errorf("notes generation returned empty text")
	}
	return notes, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
