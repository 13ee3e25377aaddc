package alphaapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Airdrop is one record of the data feed's "airdrops" array
type Airdrop struct {
	Token           string     `json:"token"`
	Name            string     `json:"name"`
	Date            string     `json:"date"`
	Time            FlexString `json:"time"`
	Amount          FlexString `json:"amount"`
	Points          FlexString `json:"points"`
	Phase           FlexInt    `json:"phase"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	ContractAddress string     `json:"contract_address"`
	ChainID         FlexString `json:"chain_id"`
}

// AirdropsResponse is the data feed envelope. Records are kept raw so a
// malformed one can be skipped without losing the rest.
type AirdropsResponse struct {
	Airdrops []json.RawMessage `json:"airdrops"`
}

// FlexString accepts a JSON string, number or null. Null becomes "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// FlexInt accepts a JSON integer, an integer-valued string, or null (0).
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*i = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("flex int %q: %w", raw, err)
	}
	*i = FlexInt(int(f))
	return nil
}
