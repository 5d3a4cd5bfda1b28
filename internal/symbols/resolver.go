package symbols

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"news-trading-bot/internal/types"
)

// Resolver maps free-text company names to canonical tickers. Resolution
// is deterministic and side-effect-free; names that match nothing resolve
// to ResolveUnresolved and are dropped downstream, never guessed.
type Resolver struct {
	companies map[string]string // lowercased canonical name -> ticker
	aliases   map[string]string // lowercased literal alias -> ticker
	known     []string          // sorted lowercased names for fuzzy matching
	threshold float64
}

func NewResolver(companies, aliases map[string]string, threshold float64) *Resolver {
	r := &Resolver{
		companies: make(map[string]string, len(companies)),
		aliases:   make(map[string]string, len(aliases)),
		threshold: threshold,
	}

	for name, ticker := range companies {
		key := strings.ToLower(strings.TrimSpace(name))
		r.companies[key] = ticker
		r.known = append(r.known, key)
	}
	for name, ticker := range aliases {
		key := strings.ToLower(strings.TrimSpace(name))
		r.aliases[key] = ticker
		r.known = append(r.known, key)
	}
	// Sorted candidate order makes fuzzy tie-breaks deterministic.
	sort.Strings(r.known)

	return r
}

func (r *Resolver) Resolve(companyName string) types.ResolvedSymbol {
	res := types.ResolvedSymbol{CompanyName: companyName, Method: types.ResolveUnresolved}

	key := strings.ToLower(strings.TrimSpace(companyName))
	if key == "" {
		return res
	}

	if ticker, ok := r.companies[key]; ok {
		res.Ticker = ticker
		res.Method = types.ResolveExact
		return res
	}

	if ticker, ok := r.aliases[key]; ok {
		res.Ticker = ticker
		res.Method = types.ResolveAlias
		return res
	}

	if name, score := r.closest(key); score >= r.threshold {
		if ticker, ok := r.companies[name]; ok {
			res.Ticker = ticker
		} else {
			res.Ticker = r.aliases[name]
		}
		res.Method = types.ResolveFuzzy
		return res
	}

	return res
}

// closest returns the known name with the highest normalized Levenshtein
// similarity to key, where 1.0 is an exact match.
func (r *Resolver) closest(key string) (string, float64) {
	bestName := ""
	bestScore := 0.0

	for _, name := range r.known {
		dist := levenshtein.ComputeDistance(key, name)
		longest := len(key)
		if len(name) > longest {
			longest = len(name)
		}
		if longest == 0 {
			continue
		}
		score := 1.0 - float64(dist)/float64(longest)
		if score > bestScore {
			bestName = name
			bestScore = score
		}
	}

	return bestName, bestScore
}
