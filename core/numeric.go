package core

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Numeric is a numeric form value kept exactly as entered.
// Empty or half-typed values survive a save/load round trip and are only
// interpreted when read with Float.
type Numeric string

// NumericOf formats f with the fewest digits that read back to the same value.
func NumericOf(f float64) Numeric {
	return Numeric(strconv.FormatFloat(f, 'f', -1, 64))
}

func (n Numeric) Float() (float64, bool) {
	return ParseNumber(string(n))
}

func (n Numeric) IsEmpty() bool {
	return CleanString(string(n)) == ""
}

func (n Numeric) String() string {
	return string(n)
}

// UnmarshalJSON accepts JSON strings, numbers and null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*n = ""
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = Numeric(num.String())
	return nil
}
