package mapper

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// decimalMapToJSON stores decimals as strings; keys are written sorted by
// encoding/json so the column content is stable.
func decimalMapToJSON(items map[string]decimal.Decimal) datatypes.JSON {
	raw := make(map[string]string, len(items))
	for k, v := range items {
		raw[k] = v.String()
	}
	b, _ := json.Marshal(raw)
	return datatypes.JSON(b)
}

func decimalMapFromJSON(data datatypes.JSON) map[string]decimal.Decimal {
	raw := map[string]string{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &raw)
	}
	items := make(map[string]decimal.Decimal, len(raw))
	for k, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		items[k] = d
	}
	return items
}

func stringsToJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}

func stringsFromJSON(data datatypes.JSON) []string {
	values := []string{}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &values)
	}
	return values
}
