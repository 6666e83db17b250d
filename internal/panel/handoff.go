package panel

import (
	"encoding/json"
	"fmt"
)

// handoffKeys are the waybill-number aliases the alert cards produce. They
// are probed in order and the first non-empty value wins.
var handoffKeys = []string{"ctrc", "numero", "Numero", "NumeroCTRC", "Ctrc"}

// ExtractCtrcs pulls the waybill numbers out of a card's row list. Elements
// may be bare strings or objects under any of the known aliases; elements
// with no usable number are dropped.
func ExtractCtrcs(raw json.RawMessage) ([]string, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("handoff body must be a JSON array: %w", err)
	}

	ctrcs := make([]string, 0, len(elements))
	for _, el := range elements {
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			if s != "" {
				ctrcs = append(ctrcs, s)
			}
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(el, &obj); err != nil {
			continue
		}
		for _, key := range handoffKeys {
			field, ok := obj[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(field, &s); err == nil && s != "" {
				ctrcs = append(ctrcs, s)
				break
			}
			var n json.Number
			if err := json.Unmarshal(field, &n); err == nil && n.String() != "" {
				ctrcs = append(ctrcs, n.String())
				break
			}
		}
	}
	return ctrcs, nil
}
