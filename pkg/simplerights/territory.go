package simplerights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// worldwideLiteral is the wire form of a worldwide grant.
const worldwideLiteral = "worldwide"

// TerritoryScope is either a worldwide grant or an explicit set of
// territory codes. The zero value is an explicit, empty set.
type TerritoryScope struct {
	worldwide bool
	codes     []Territory
}

// Worldwide returns a scope covering every territory.
func Worldwide() TerritoryScope {
	return TerritoryScope{worldwide: true}
}

// Territories returns an explicit scope. Codes are normalized to upper case
// and de-duplicated, keeping first-seen order.
func Territories(codes ...Territory) TerritoryScope {
	seen := make(map[Territory]struct{}, len(codes))
	out := make([]Territory, 0, len(codes))
	for _, c := range codes {
		n := NormalizeTerritory(string(c))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return TerritoryScope{codes: out}
}

// IsWorldwide reports whether the scope covers every territory.
func (s TerritoryScope) IsWorldwide() bool {
	return s.worldwide
}

// Codes returns a copy of the explicit territory codes. It is nil for a
// worldwide scope.
func (s TerritoryScope) Codes() []Territory {
	if s.worldwide || len(s.codes) == 0 {
		return nil
	}
	out := make([]Territory, len(s.codes))
	copy(out, s.codes)
	return out
}

// Contains reports whether t falls inside the scope.
func (s TerritoryScope) Contains(t Territory) bool {
	if s.worldwide {
		return true
	}
	return containsTerritory(s.codes, NormalizeTerritory(string(t)))
}

// String renders the scope for messages.
func (s TerritoryScope) String() string {
	if s.worldwide {
		return worldwideLiteral
	}
	return joinTerritories(s.codes)
}

// MarshalJSON encodes a worldwide scope as "worldwide" and an explicit scope
// as an array of codes.
func (s TerritoryScope) MarshalJSON() ([]byte, error) {
	if s.worldwide {
		return json.Marshal(worldwideLiteral)
	}
	codes := s.codes
	if codes == nil {
		codes = []Territory{}
	}
	return json.Marshal(codes)
}

// UnmarshalJSON accepts either the literal "worldwide" or an array of codes.
func (s *TerritoryScope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = TerritoryScope{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var lit string
		if err := json.Unmarshal(data, &lit); err != nil {
			return err
		}
		if !strings.EqualFold(lit, worldwideLiteral) {
			return fmt.Errorf("%w: territory scope must be %q or a list of codes, got %q", ErrInvalidRights, worldwideLiteral, lit)
		}
		*s = Worldwide()
		return nil
	}
	var codes []Territory
	if err := json.Unmarshal(data, &codes); err != nil {
		return fmt.Errorf("%w: territory scope: %v", ErrInvalidRights, err)
	}
	*s = Territories(codes...)
	return nil
}

// NormalizeTerritory trims and upper-cases a territory code.
func NormalizeTerritory(s string) Territory {
	return Territory(strings.ToUpper(strings.TrimSpace(s)))
}

// effectiveTerritories returns the allowed set minus the restricted set.
// The boolean is true when the grant is worldwide, in which case the
// restriction can never empty it.
func effectiveTerritories(allowed TerritoryScope, restricted []Territory) ([]Territory, bool) {
	if allowed.worldwide {
		return nil, true
	}
	out := make([]Territory, 0, len(allowed.codes))
	for _, c := range allowed.codes {
		if !containsTerritory(restricted, c) {
			out = append(out, c)
		}
	}
	return out, false
}

func containsTerritory(list []Territory, t Territory) bool {
	for _, c := range list {
		if NormalizeTerritory(string(c)) == t {
			return true
		}
	}
	return false
}

func joinTerritories(list []Territory) string {
	parts := make([]string, len(list))
	for i, t := range list {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
