package estimation

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexBool decodes true, 1, "true", "1" and "faz" as true; anything else is false.
// The estimation service is inconsistent about the type of its flags.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*b = true
	case bytes.Equal(data, []byte("1")):
		*b = true
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "faz":
			*b = true
		default:
			*b = false
		}
	default:
		*b = false
	}
	return nil
}

// FlexNumber decodes a number that may arrive quoted. Empty or non-numeric is nil.
type FlexNumber struct {
	Value *float64
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	n.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	n.Value = &f
	return nil
}

// response is the wire shape of POST /estimate.
type response struct {
	ThresholdPassed   bool       `json:"threshold_passed"`
	SuggestedValue    FlexNumber `json:"suggested_value"`
	BestMatchValueRef FlexNumber `json:"best_match_valor_ref"`
	BestMatchScore    FlexNumber `json:"best_match_score"`
	BestMatchShopCan  FlexBool   `json:"best_match_status_faz"`
	RefImageID        FlexNumber `json:"ref_image_id"`
	BestMatchID       FlexNumber `json:"best_match_id"`
	BestMatchRefID    FlexNumber `json:"best_match_ref_id"`
	BestMatchImageID  FlexNumber `json:"best_match_image_id"`
}

// Estimate is the normalized outcome of scoring one photo.
type Estimate struct {
	Value           *float64        `json:"value,omitempty"`
	MatchScore      *float64        `json:"match_score,omitempty"`
	ReferenceID     *int64          `json:"reference_id,omitempty"`
	ThresholdPassed bool            `json:"threshold_passed"`
	ShopCanDo       bool            `json:"shop_can_do"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// Quotable reports whether the shop can price the repair from the photo alone.
func (e Estimate) Quotable() bool {
	return e.ThresholdPassed && e.ShopCanDo
}

// Parse normalizes a raw /estimate body.
func Parse(body []byte) (Estimate, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return Estimate{}, err
	}
	e := Estimate{
		MatchScore:      r.BestMatchScore.Value,
		ThresholdPassed: r.ThresholdPassed,
		ShopCanDo:       bool(r.BestMatchShopCan),
		Raw:             json.RawMessage(append([]byte(nil), body...)),
	}
	for _, c := range []FlexNumber{r.SuggestedValue, r.BestMatchValueRef} {
		if c.Value != nil && *c.Value != 0 {
			e.Value = c.Value
			break
		}
	}
	for _, c := range []FlexNumber{r.RefImageID, r.BestMatchID, r.BestMatchRefID, r.BestMatchImageID} {
		if c.Value != nil {
			id := int64(*c.Value)
			e.ReferenceID = &id
			break
		}
	}
	return e, nil
}
