package contract

import "strconv"

// OptionType is the exchange suffix of an option contract.
type OptionType string

const (
	// Call is a call option (CE).
	Call OptionType = "CE"
	// Put is a put option (PE).
	Put OptionType = "PE"
)

// DefaultTypes lists the option types tracked per strike, calls first.
var DefaultTypes = []OptionType{Call, Put}

// Contract identifies a single tradable option.
type Contract struct {
	Index  string
	Expiry string
	Strike int
	Type   OptionType
}

// Symbol is the upstream identifier: index + expiry + strike + type.
func (c Contract) Symbol() string {
	return c.Index + c.Expiry + strconv.Itoa(c.Strike) + string(c.Type)
}

// Label is the short form used in alert tables, e.g. "25250 CE".
func (c Contract) Label() string {
	return strconv.Itoa(c.Strike) + " " + string(c.Type)
}

// Universe is an ordered set of contracts.
type Universe struct {
	contracts []Contract
	bySymbol  map[string]int
}

// Build expands strikes into contracts, strikes outer and option types inner.
func Build(index, expiry string, strikes []int, types ...OptionType) Universe {
	if len(types) == 0 {
		types = DefaultTypes
	}
	u := Universe{
		contracts: make([]Contract, 0, len(strikes)*len(types)),
		bySymbol:  make(map[string]int, len(strikes)*len(types)),
	}
	for _, strike := range strikes {
		for _, typ := range types {
			u.add(Contract{Index: index, Expiry: expiry, Strike: strike, Type: typ})
		}
	}
	return u
}

func (u *Universe) add(c Contract) {
	if u.bySymbol == nil {
		u.bySymbol = make(map[string]int)
	}
	u.bySymbol[c.Symbol()] = len(u.contracts)
	u.contracts = append(u.contracts, c)
}

// Merge appends other's contracts after u's, keeping order.
func (u Universe) Merge(other Universe) Universe {
	out := Universe{
		contracts: make([]Contract, 0, u.Len()+other.Len()),
		bySymbol:  make(map[string]int, u.Len()+other.Len()),
	}
	for _, c := range u.contracts {
		out.add(c)
	}
	for _, c := range other.contracts {
		out.add(c)
	}
	return out
}

// Len returns the number of contracts.
func (u Universe) Len() int { return len(u.contracts) }

// Symbols returns the upstream identifiers in order.
func (u Universe) Symbols() []string {
	out := make([]string, len(u.contracts))
	for i, c := range u.contracts {
		out[i] = c.Symbol()
	}
	return out
}

// Lookup resolves an identifier back to its contract.
func (u Universe) Lookup(symbol string) (Contract, bool) {
	idx, ok := u.bySymbol[symbol]
	if !ok {
		return Contract{}, false
	}
	return u.contracts[idx], true
}
