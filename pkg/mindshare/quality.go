package mindshare

import (
	"strings"
	"unicode/utf16"
)

const maxQuality = 100

// Brand and slogan variants. Each phrase found adds highValuePoints.
var highValueKeywords = []string{
	"blockfest africa", "blockfestafrica", "#blockfestafrica", "#blockfest",
	"africa's web3 superb", "web3 superb", "africa's premier blockchain",
	"africa's biggest web3", "continent's largest web3", "web3 superb",
}

// Event and category terms.
var mediumValueKeywords = []string{
	"blockfest", "blockf3st", "b3a", "web3 africa", "blockchain africa",
	"africa web3", "web3 festival", "blockchain conference", "crypto festival",
	"buidl", "bridge", "become", "web3 in motion", "unlocking africa",
	"african builders", "african creators", "african developers",
}

// Date, city and logistics terms.
var eventKeywords = []string{
	"october 11", "oct 11", "2025", "lagos", "landmark event",
	"4,000 attendees", "free registration", "networking", "panels",
	"workshops", "masterclasses", "keynotes", "speakers",
}

const (
	highValuePoints   = 40
	mediumValuePoints = 15
	eventPoints       = 8
)

type lengthBonus struct {
	over   int
	points int
}

// Cumulative: a 350-unit post earns all three.
var lengthBonuses = []lengthBonus{
	{over: 100, points: 10},
	{over: 200, points: 15},
	{over: 300, points: 20},
}

type structuralBonus struct {
	anyOf  []string
	points int
}

var structuralBonuses = []structuralBonus{
	{anyOf: []string{"thread", "🧵"}, points: 15},
	{anyOf: []string{"register", "ticket"}, points: 10},
	{anyOf: []string{"speaking", "panel"}, points: 20},
	{anyOf: []string{"photo", "video", "image"}, points: 5},
}

// ContentQuality rates post text on a 0-100 scale from keyword and
// structural heuristics. Matching is case-insensitive substring containment.
func ContentQuality(text string) int {
	lower := strings.ToLower(text)
	score := 0

	score += keywordPoints(lower, highValueKeywords, highValuePoints)
	score += keywordPoints(lower, mediumValueKeywords, mediumValuePoints)
	score += keywordPoints(lower, eventKeywords, eventPoints)

	length := textLength(text)
	for _, b := range lengthBonuses {
		if length > b.over {
			score += b.points
		}
	}

	for _, b := range structuralBonuses {
		if containsAny(lower, b.anyOf) {
			score += b.points
		}
	}

	return min(score, maxQuality)
}

func keywordPoints(lower string, keywords []string, points int) int {
	total := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			total += points
		}
	}
	return total
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// textLength counts UTF-16 code units, the unit post length limits are expressed in.
func textLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}
