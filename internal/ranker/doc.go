// Package ranker selects a token-budget-sized prefix of search
// results under a relevance, diversity, or balanced ordering.
package ranker
