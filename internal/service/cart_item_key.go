package service

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/dujiao-next/tableside/internal/models"

	"github.com/shopspring/decimal"
)

const (
	cartItemKeySeparator    = "::"
	cartOptionPairSeparator = "|"
)

// NormalizeCartOptions 规整客户端提交的规格列表
// 支持对象数组、字符串数组，或上述两者序列化后的 JSON 字符串；其他形态视为无规格。
func NormalizeCartOptions(raw json.RawMessage) models.CartOptions {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.CartOptions{}
	}
	value, ok := decodeOptionsJSON(raw)
	if !ok {
		return models.CartOptions{}
	}
	if text, isString := value.(string); isString {
		// 规格被二次序列化为字符串时只解一层
		value, ok = decodeOptionsJSON([]byte(text))
		if !ok {
			return models.CartOptions{}
		}
	}
	entries, isArray := value.([]interface{})
	if !isArray {
		return models.CartOptions{}
	}

	options := make(models.CartOptions, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case map[string]interface{}:
			options = append(options, models.CartOption{
				ID:              optionIDString(v["id"]),
				Name:            optionString(v["name"]),
				AdditionalPrice: optionPrice(v["additionalPrice"]),
			})
		case string:
			if name := strings.TrimSpace(v); name != "" {
				options = append(options, models.CartOption{Name: name})
			}
		}
	}
	return options
}

// BuildCartItemID 计算购物车明细标识，与规格顺序无关
func BuildCartItemID(productID string, options models.CartOptions) string {
	productID = strings.TrimSpace(productID)
	if len(options) == 0 {
		return productID
	}
	type pair struct {
		key   string
		price string
	}
	pairs := make([]pair, 0, len(options))
	for _, option := range options {
		key := strings.TrimSpace(option.ID)
		if key == "" {
			key = strings.TrimSpace(option.Name)
		}
		pairs = append(pairs, pair{key: key, price: option.AdditionalPrice.Plain()})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].price < pairs[j].price
	})
	segments := make([]string, 0, len(pairs))
	for _, p := range pairs {
		segments = append(segments, p.key+":"+p.price)
	}
	return productID + cartItemKeySeparator + strings.Join(segments, cartOptionPairSeparator)
}

func decodeOptionsJSON(raw []byte) (interface{}, bool) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func optionIDString(value interface{}) string {
	switch v := value.(type) {
	case json.Number:
		return v.String()
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

func optionString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func optionPrice(value interface{}) models.Money {
	var raw string
	switch v := value.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = v
	default:
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
	price, err := models.ParseMoney(raw)
	if err != nil {
		return models.NewMoneyFromDecimal(decimal.Zero)
	}
	return price
}
