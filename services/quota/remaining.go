package quota

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Remaining is a count of protected views left today, or Unlimited.
type Remaining int

// Unlimited is the remaining count of roles that are not metered.
const Unlimited Remaining = -1

const unlimitedLabel = "unlimited"

func (r Remaining) IsUnlimited() bool {
	return r < 0
}

// Allows reports whether at least one more protected view is permitted.
func (r Remaining) Allows() bool {
	return r.IsUnlimited() || r > 0
}

func (r Remaining) String() string {
	if r.IsUnlimited() {
		return unlimitedLabel
	}
	return strconv.Itoa(int(r))
}

// MarshalJSON renders Unlimited as the string "unlimited" and counts as numbers.
func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.IsUnlimited() {
		return []byte(`"` + unlimitedLabel + `"`), nil
	}
	return []byte(strconv.Itoa(int(r))), nil
}

func (r *Remaining) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if label != unlimitedLabel {
			return fmt.Errorf("quota: unknown remaining label %q", label)
		}
		*r = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quota: invalid remaining value: %w", err)
	}
	if n < 0 {
		n = 0
	}
	*r = Remaining(n)
	return nil
}
