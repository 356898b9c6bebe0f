package service

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode"

	"github.com/deepquiz/wikiquiz/config"
	"github.com/deepquiz/wikiquiz/internal/apperr"
	"github.com/deepquiz/wikiquiz/internal/quiz"
	"github.com/rs/zerolog/log"
)

// FallbackGeneratorService synthesizes a quiz from the article text alone,
// with no external calls. Used when the LLM path escalates or is off.
// Output is deterministic for identical input.
type FallbackGeneratorService interface {
	Generate(article *Article, minQuestions, maxQuestions int) (*quiz.Payload, error)
}

type fallbackGeneratorService struct {
	cfg *config.Config
}

func NewFallbackGeneratorService(cfg *config.Config) FallbackGeneratorService {
	return &fallbackGeneratorService{cfg: cfg}
}

// fallbackSeed keeps distractor shuffles reproducible across runs.
const fallbackSeed = 42

const fallbackNote = "Generated using rule-based fallback due to primary model being unavailable."

var titleStopwords = map[string]bool{
	"The": true, "A": true, "An": true, "In": true, "On": true, "And": true,
	"But": true, "For": true, "With": true, "As": true, "By": true, "Of": true,
	"To": true,
}

var entityPattern = regexp.MustCompile(`[A-Z][\w]*(?:\s+[A-Z][\w]*)*`)

var genericDistractors = []string{
	"A different historical event",
	"An unrelated scientific topic",
	"A fictional character",
	"A random geographic location",
	"A general cultural reference",
	"None of the above",
}

func (s *fallbackGeneratorService) Generate(article *Article, minQuestions, maxQuestions int) (*quiz.Payload, error) {
	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Untitled Article"
	}
	sections := cleanSections(article.Sections)
	text := strings.TrimSpace(article.Text)

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		if text != "" {
			sentences = []string{text}
		} else {
			sentences = []string{title + " is the focus of this article."}
		}
	}

	entities := collectEntities(sentences, 80)
	rng := rand.New(rand.NewSource(fallbackSeed))

	summary := strings.Join(firstN(sentences, 3), " ")
	if summary == "" {
		summary = "Overview of " + title
	}

	var items []quiz.Item
	usedAnswers := map[string]bool{}
	for _, sentence := range sentences {
		if len(items) >= maxQuestions {
			break
		}
		candidates := extractEntities(sentence)
		if len(candidates) == 0 {
			continue
		}
		answer := candidates[0]
		if usedAnswers[answer] {
			continue
		}
		item := buildBlankedQuestion(sentence, answer, entities, rng)
		if len(quiz.ValidateItem(&item, "item")) != 0 {
			continue
		}
		usedAnswers[answer] = true
		items = append(items, item)
	}

	// Pad with lower-confidence items rather than returning a short quiz.
	if len(items) < minQuestions {
		anchor := sentences[0]
		for _, ent := range entities {
			if len(items) >= minQuestions {
				break
			}
			if usedAnswers[ent] {
				continue
			}
			item := buildBlankedQuestion(anchor, ent, entities, rng)
			if len(quiz.ValidateItem(&item, "item")) != 0 {
				continue
			}
			usedAnswers[ent] = true
			items = append(items, item)
		}
	}
	for len(items) < minQuestions {
		item := genericTitleQuestion(title, len(items), rng)
		if len(quiz.ValidateItem(&item, "item")) != 0 {
			break
		}
		items = append(items, item)
	}
	if len(items) > maxQuestions {
		items = items[:maxQuestions]
	}

	if len(items) < s.cfg.Generation.FallbackMinItems || len(items) < minQuestions {
		return nil, apperr.New(apperr.KindGenerationExhausted,
			fmt.Sprintf("fallback generator produced only %d valid questions (need at least %d)", len(items), minQuestions))
	}

	notes := fallbackNote
	payload := &quiz.Payload{
		Title:         title,
		Summary:       summary,
		KeyEntities:   bucketEntities(firstN(entities, 5)),
		Sections:      firstN(sections, 10),
		Quiz:          items,
		RelatedTopics: firstN(sections, 6),
		Notes:         &notes,
	}

	if violations := quiz.ValidatePayload(payload); len(violations) > 0 {
		// Every item was individually checked; a failure here means the
		// surrounding fields are unusable (e.g. blank title).
		log.Error().Str("violations", quiz.FormatViolations(violations)).Msg("Fallback payload failed validation")
		return nil, apperr.New(apperr.KindGenerationExhausted, "fallback generator could not produce a valid payload")
	}
	return payload, nil
}

// splitSentences breaks text at terminal punctuation followed by a capital
// or digit, keeping only sentences long enough to carry a fact.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if unicode.IsUpper(runes[j]) || unicode.IsDigit(runes[j]) {
			if s := strings.TrimSpace(string(runes[start : i+1])); len(s) > 40 {
				sentences = append(sentences, s)
			}
			start = j
			i = j - 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); len(s) > 40 {
		sentences = append(sentences, s)
	}
	return sentences
}

// extractEntities pulls capitalized runs out of a sentence, dropping
// stopword-led, all-caps, and too-short matches.
func extractEntities(sentence string) []string {
	var out []string
	for _, m := range entityPattern.FindAllString(sentence, -1) {
		ent := strings.TrimSpace(m)
		if len(ent) < 3 {
			continue
		}
		if titleStopwords[strings.Fields(ent)[0]] {
			continue
		}
		if ent == strings.ToUpper(ent) {
			continue
		}
		out = append(out, ent)
	}
	return out
}

func collectEntities(sentences []string, limit int) []string {
	seen := map[string]bool{}
	var items []string
	for _, sent := range sentences {
		for _, ent := range extractEntities(sent) {
			norm := strings.ToLower(ent)
			if seen[norm] {
				continue
			}
			seen[norm] = true
			items = append(items, ent)
			if len(items) >= limit {
				return items
			}
		}
	}
	return items
}

func buildBlankedQuestion(sentence, answer string, entities []string, rng *rand.Rand) quiz.Item {
	blanked := strings.Replace(sentence, answer, "____", 1)
	options := []string{answer}
	seen := map[string]bool{answer: true}

	distractors := make([]string, 0, len(entities))
	for _, ent := range entities {
		if !seen[ent] {
			distractors = append(distractors, ent)
		}
	}
	rng.Shuffle(len(distractors), func(i, j int) {
		distractors[i], distractors[j] = distractors[j], distractors[i]
	})
	for _, d := range distractors {
		if len(options) == quiz.OptionCount {
			break
		}
		seen[d] = true
		options = append(options, d)
	}
	for _, d := range genericDistractors {
		if len(options) == quiz.OptionCount {
			break
		}
		if !seen[d] {
			seen[d] = true
			options = append(options, d)
		}
	}
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	return quiz.Item{
		Question: fmt.Sprintf(
			"In the context of this article, which option best completes the statement:\n%q", strings.TrimSpace(blanked)),
		Options:      options,
		Answer:       answer,
		Difficulty:   quiz.DifficultyMedium,
		Explanation:  fmt.Sprintf("The original sentence states %q which identifies %s.", sentence, answer),
		EvidenceSpan: sentence,
	}
}

// genericTitleQuestion is the lowest-confidence padding item; seq varies the
// wording so padded items stay distinguishable.
func genericTitleQuestion(title string, seq int, rng *rand.Rand) quiz.Item {
	pool := make([]string, 0, len(genericDistractors))
	for _, d := range genericDistractors {
		if d != title {
			pool = append(pool, d)
		}
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	options := append([]string{title}, pool[:3]...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	question := fmt.Sprintf("What subject does the article %q primarily discuss?", title)
	if seq > 0 {
		question = fmt.Sprintf("(%d) %s", seq+1, question)
	}
	return quiz.Item{
		Question:     question,
		Options:      options,
		Answer:       title,
		Difficulty:   quiz.DifficultyEasy,
		Explanation:  fmt.Sprintf("The article overview centers on %s.", title),
		EvidenceSpan: fmt.Sprintf("The article focuses on %s.", title),
	}
}

// bucketEntities sorts surface forms into people/organizations/locations by
// suffix keywords; everything unmatched defaults to people.
func bucketEntities(entities []string) quiz.KeyEntities {
	ke := quiz.KeyEntities{People: []string{}, Organizations: []string{}, Locations: []string{}}
	for _, ent := range entities {
		lower := strings.ToLower(ent)
		switch {
		case strings.Contains(lower, "university") || strings.Contains(lower, "company") ||
			strings.Contains(lower, "association") || strings.Contains(lower, "institute"):
			ke.Organizations = append(ke.Organizations, ent)
		case strings.Contains(lower, "city") || strings.Contains(lower, "state") ||
			strings.Contains(lower, "country") || strings.Contains(lower, "river"):
			ke.Locations = append(ke.Locations, ent)
		default:
			ke.People = append(ke.People, ent)
		}
	}
	return ke
}

func cleanSections(sections []string) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}

func firstN(items []string, n int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > n {
		items = items[:n]
	}
	return items
}
