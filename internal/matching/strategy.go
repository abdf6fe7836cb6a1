package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/textnorm"
)

// StrategyID tags the phrasing strategy that produced a candidate query.
type StrategyID string

const (
	StrategyOriginalPattern     StrategyID = "original_pattern"
	StrategyDirectName          StrategyID = "direct_name"
	StrategyConstructedWin      StrategyID = "constructed_win"
	StrategyElectionWinThe      StrategyID = "election_win_the"
	StrategyElectionToWin       StrategyID = "election_to_win"
	StrategyElectionElected     StrategyID = "election_elected"
	StrategyElectionJoined      StrategyID = "election_joined"
	StrategyFuzzyReconstruction StrategyID = "fuzzy_reconstruction"
	StrategySimpleElection      StrategyID = "simple_election"
	StrategySimilarityBridge    StrategyID = "similarity_bridge"
)

// Candidate is one phrasing that could match a contract to a question on the
// opposite venue, tagged with the strategy that built it and its prior.
type Candidate struct {
	Text     string     `json:"text"`
	Strategy StrategyID `json:"strategy"`
	Prior    float64    `json:"prior"`
}

// tooDifferentCutoff gates the similarity-bridge strategy: it only fires
// when the contract and market titles share almost no vocabulary.
const tooDifferentCutoff = 0.3

type strategyFunc func(contract markets.ContractSide, marketTitle string) (string, bool)

// strategyTable is the closed set of phrasing strategies in fixed priority
// order. Adding a strategy means adding a row, not subclassing anything.
var strategyTable = []struct {
	ID    StrategyID
	Prior float64
	Build strategyFunc
}{
	{StrategyOriginalPattern, 0.90, buildOriginalPattern},
	{StrategyDirectName, 0.80, buildDirectName},
	{StrategyConstructedWin, 0.75, buildConstructedWin},
	{StrategyElectionWinThe, 0.70, buildElectionWinThe},
	{StrategyElectionToWin, 0.65, buildElectionToWin},
	{StrategyElectionElected, 0.60, buildElectionElected},
	{StrategyElectionJoined, 0.55, buildElectionJoined},
	{StrategyFuzzyReconstruction, 0.65, buildFuzzyReconstruction},
	{StrategySimpleElection, 0.60, buildSimpleElection},
	{StrategySimilarityBridge, 0.55, buildSimilarityBridge},
}

// strategyRank maps a strategy to its position in the table so ties between
// equal-confidence candidates resolve toward the higher-priority strategy.
var strategyRank = func() map[StrategyID]int {
	ranks := make(map[StrategyID]int, len(strategyTable))
	for i, row := range strategyTable {
		ranks[row.ID] = i
	}
	return ranks
}()

// Rank returns the fixed priority position of a strategy (lower is higher
// priority).
func Rank(id StrategyID) int {
	if r, ok := strategyRank[id]; ok {
		return r
	}
	return len(strategyTable)
}

// GenerateCandidates runs every strategy against the contract and the title
// of the market it trades on. Each strategy emits zero or one candidate; all
// emitted candidates are returned, ordered by descending prior. Downstream
// scoring picks the winner.
func GenerateCandidates(contract markets.ContractSide, source markets.MarketQuestion) []Candidate {
	var out []Candidate
	for _, row := range strategyTable {
		text, ok := row.Build(contract, source.Question)
		if !ok {
			continue
		}
		text = collapseSpaces(text)
		if text == "" {
			continue
		}
		out = append(out, Candidate{Text: text, Strategy: row.ID, Prior: row.Prior})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prior > out[j].Prior })
	return out
}

// buildOriginalPattern reuses the market title's own phrasing from the first
// "win" onward: `Will <contract> win ...`.
func buildOriginalPattern(contract markets.ContractSide, marketTitle string) (string, bool) {
	idx := winIndex(marketTitle)
	if idx < 0 || strings.EqualFold(marketTitle, contract.Name) {
		return "", false
	}
	return "Will " + contract.Name + " " + marketTitle[idx:], true
}

// winIndex finds the first case-insensitive "win" in the title. The offset
// is computed against the original string: lower-casing can change byte
// lengths (e.g. U+0130), so an index into the lowered string may not be a
// valid slice point here.
func winIndex(title string) int {
	for i := range title {
		if rest := title[i:]; len(rest) >= 3 && strings.EqualFold(rest[:3], "win") {
			return i
		}
	}
	return -1
}

// buildDirectName emits the contract name verbatim when its tokens are a
// subset or superset of the market title's tokens.
func buildDirectName(contract markets.ContractSide, marketTitle string) (string, bool) {
	nameSet := textnorm.TokenSet(contract.Name)
	titleSet := textnorm.TokenSet(marketTitle)
	if len(nameSet) == 0 || len(titleSet) == 0 {
		return "", false
	}
	if !textnorm.Subset(nameSet, titleSet) && !textnorm.Subset(titleSet, nameSet) {
		return "", false
	}
	return contract.Name, true
}

func buildConstructedWin(contract markets.ContractSide, marketTitle string) (string, bool) {
	if strings.Contains(strings.ToLower(marketTitle), "win") {
		return "", false
	}
	terms := textnorm.ExtractKeyTerms(marketTitle)
	if len(terms) == 0 {
		return "", false
	}
	if len(terms) > 3 {
		terms = terms[:3]
	}
	return fmt.Sprintf("Will %s win %s", contract.Name, strings.Join(terms, " ")), true
}

func buildElectionWinThe(contract markets.ContractSide, marketTitle string) (string, bool) {
	return minWords(fmt.Sprintf("Will %s win the %s", contract.Name, marketTitle))
}

func buildElectionToWin(contract markets.ContractSide, marketTitle string) (string, bool) {
	return minWords(fmt.Sprintf("%s to win %s", contract.Name, marketTitle))
}

func buildElectionElected(contract markets.ContractSide, _ string) (string, bool) {
	return minWords(fmt.Sprintf("Will %s be elected", contract.Name))
}

func buildElectionJoined(contract markets.ContractSide, marketTitle string) (string, bool) {
	return minWords(fmt.Sprintf("%s %s", contract.Name, marketTitle))
}

// buildFuzzyReconstruction merges the leading key terms of both titles into
// one phrase.
func buildFuzzyReconstruction(contract markets.ContractSide, marketTitle string) (string, bool) {
	contractTerms := textnorm.ExtractKeyTerms(contract.Name)
	marketTerms := textnorm.ExtractKeyTerms(marketTitle)
	if len(contractTerms) == 0 || len(marketTerms) == 0 {
		return "", false
	}
	if len(contractTerms) > 2 {
		contractTerms = contractTerms[:2]
	}
	if len(marketTerms) > 2 {
		marketTerms = marketTerms[:2]
	}
	combined := append(append([]string{}, contractTerms...), marketTerms...)
	return "Will " + strings.Join(combined, " "), true
}

func buildSimpleElection(contract markets.ContractSide, marketTitle string) (string, bool) {
	lower := strings.ToLower(marketTitle)
	for _, term := range []string{"election", "president", "governor", "senate"} {
		if strings.Contains(lower, term) {
			return contract.Name + " election", true
		}
	}
	return "", false
}

// buildSimilarityBridge is the last resort when the contract and market
// titles look unrelated.
func buildSimilarityBridge(contract markets.ContractSide, marketTitle string) (string, bool) {
	if textnorm.Similarity(contract.Name, marketTitle) >= tooDifferentCutoff {
		return "", false
	}
	return "Will " + contract.Name + " win", true
}

func minWords(text string) (string, bool) {
	text = collapseSpaces(text)
	if len(strings.Fields(text)) < 3 {
		return "", false
	}
	return text, true
}

func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
